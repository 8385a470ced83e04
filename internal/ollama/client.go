// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so a wrapped transport
// failure still satisfies errors.Is(err, ErrNotRunning).
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotRunning:
		return "not_running"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model_not_found"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrCanceled      = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	DefaultBaseURL      = "http://127.0.0.1:11434"
	DefaultModel        = "gemma2:9b"
	DefaultProbeTimeout = 3 * time.Second
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434).
	// The explicit IPv4 address avoids localhost resolving to ::1.
	BaseURL string

	// Timeout bounds a chat request. Zero means the request blocks until
	// the model answers or the context is canceled.
	Timeout time.Duration

	// ProbeTimeout bounds CheckRunning, ListModels and GetModel (default: 3s).
	ProbeTimeout time.Duration

	// DefaultModel is used when Chat is called with an empty model name.
	DefaultModel string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      DefaultBaseURL,
		ProbeTimeout: DefaultProbeTimeout,
		DefaultModel: DefaultModel,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
// Zero values are replaced by their defaults, except Timeout.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}

	// Per-call deadlines come from contexts, the transport itself never times out.
	return &Client{
		config:     &cfg,
		httpClient: &http.Client{},
	}
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// DefaultModel returns the model used when Chat gets an empty name.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if err := statusError(resp, "failed to list models"); err != nil {
		return nil, err
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// GetModel retrieves information about a specific model.
func (c *Client) GetModel(ctx context.Context, name string) (*ShowModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, "/api/show", ShowModelRequest{Name: name})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if err := statusError(resp, "failed to get model"); err != nil {
		return nil, err
	}

	var result ShowModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// ModelExists reports whether a model is installed locally.
func (c *Client) ModelExists(ctx context.Context, model string) bool {
	_, err := c.GetModel(ctx, model)
	return err == nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a non-streaming chat request and returns the complete response.
// An empty model selects the configured default.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	return c.ChatWithOptions(ctx, model, messages, nil)
}

// ChatWithOptions sends a non-streaming chat request with model parameters.
func (c *Client) ChatWithOptions(ctx context.Context, model string, messages []Message, opts *Options) (*ChatResponse, error) {
	if model == "" {
		model = c.config.DefaultModel
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	reqBody := ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  opts,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/chat", reqBody)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if err := statusError(resp, "chat request failed"); err != nil {
		return nil, err
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

func transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: ErrCanceled.Message, Cause: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	default:
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
}

// statusError maps a non-200 response to a ClientError, preferring the
// message carried in Ollama's error body.
func statusError(resp *http.Response, prefix string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var ollamaErr OllamaError
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ollamaErr)

	if resp.StatusCode == http.StatusNotFound {
		if decodeErr == nil && ollamaErr.Error != "" {
			return &ClientError{Type: ErrTypeModelNotFound, Message: ollamaErr.Error}
		}
		return ErrModelNotFound
	}
	if decodeErr == nil && ollamaErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: ollamaErr.Error}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: prefix + ": " + resp.Status}
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Kind returns the ErrorType of err, or ErrTypeUnknown when err is not a ClientError.
func Kind(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, r)
	r.Close()
}
