// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/luna/internal/logging"
	"github.com/jeranaias/luna/internal/memory"
	"github.com/jeranaias/luna/internal/ollama"
)

// FallbackReply is shown in place of a reply when inference fails.
const FallbackReply = "Oops! Something went wrong."

// DefaultPrompt is printed before each line of user input.
const DefaultPrompt = "You: "

var (
	// ErrTerminated is returned by Step once the session has ended.
	ErrTerminated = errors.New("chat session has terminated")

	// ErrInterrupted is returned by a LineReader when the user aborts the
	// current line (Ctrl+C). Run discards the line and keeps reading.
	ErrInterrupted = errors.New("input interrupted")

	errEmptyResponse = errors.New("inference returned no response")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Inferer sends a full message list to a model and returns its reply.
type Inferer interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (*ollama.ChatResponse, error)
}

// Recorder receives a copy of every stored turn. It is optional.
type Recorder interface {
	Record(ctx context.Context, sessionID string, turn memory.Turn) error
}

// LineReader supplies user input. io.EOF means no more input will arrive;
// ErrInterrupted means the current line was abandoned.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// =============================================================================
// STATE
// =============================================================================

// State is the position of a Session in its lifecycle.
type State int

const (
	StateAwaitingInput State = iota
	StateDispatching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateDispatching:
		return "dispatching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome describes the result of one turn.
type Outcome struct {
	// Reply is the cleaned model reply, or FallbackReply when Failed.
	Reply string

	// Failed is set when inference failed; Err holds the cause.
	Failed bool
	Err    error

	// Terminated is set when both sides said goodbye.
	Terminated bool

	Model    string
	Duration time.Duration
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one conversation. It is not safe for concurrent use.
type Session struct {
	store    *memory.Store
	inferer  Inferer
	recorder Recorder

	id       string
	name     string
	model    string
	prompt   string
	preamble string
	format   func(string) string

	logger zerolog.Logger
	now    func() time.Time

	state State
	ended bool
	turns int
}

// Option configures a Session.
type Option func(*Session)

// WithModel selects the model name passed to the Inferer. Empty lets the
// Inferer pick its default.
func WithModel(model string) Option {
	return func(s *Session) { s.model = model }
}

// WithAssistantName sets the persona name.
func WithAssistantName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the event logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock overrides the clock used for the preamble and turn timings.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder mirrors every stored turn to r.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPrompt sets the text shown before each input line.
func WithPrompt(prompt string) Option {
	return func(s *Session) { s.prompt = prompt }
}

// WithReplyFormatter transforms replies before Run prints them, e.g. to
// render markdown. Stored and logged replies are never formatted.
func WithReplyFormatter(format func(string) string) Option {
	return func(s *Session) {
		if format != nil {
			s.format = format
		}
	}
}

// NewSession creates a session over store and inferer. The preamble is
// computed here, once, and reused for every turn.
func NewSession(store *memory.Store, inferer Inferer, opts ...Option) *Session {
	s := &Session{
		store:   store,
		inferer: inferer,
		id:      uuid.NewString(),
		name:    DefaultAssistantName,
		prompt:  DefaultPrompt,
		format:  func(r string) string { return r },
		logger:  logging.Nop(),
		now:     time.Now,
		state:   StateAwaitingInput,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.preamble = Preamble(s.name, s.now())
	s.logger = s.logger.With().Str("session_id", s.id).Logger()

	s.logger.Info().
		Str("event", logging.EventSessionStart).
		Str("model", s.model).
		Int("max_history", store.MaxHistory()).
		Int("remembered_turns", store.Len()).
		Msg("Session started")

	return s
}

// ID returns the session id carried by every log line.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Preamble returns the system instruction fixed at construction.
func (s *Session) Preamble() string { return s.preamble }

// AssistantName returns the persona name.
func (s *Session) AssistantName() string { return s.name }

// Messages assembles the outgoing list: the preamble followed by the
// remembered turns, oldest first.
func (s *Session) Messages() []ollama.Message {
	turns := s.store.Snapshot()
	msgs := make([]ollama.Message, 0, len(turns)+1)
	msgs = append(msgs, ollama.NewSystemMessage(s.preamble))
	for _, t := range turns {
		msgs = append(msgs, ollama.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

// Step runs one full turn for input. Inference failures are reported in
// the Outcome, not as an error; the only error is ErrTerminated.
func (s *Session) Step(ctx context.Context, input string) (Outcome, error) {
	if s.state == StateTerminated {
		return Outcome{}, ErrTerminated
	}

	s.logger.Info().
		Str("event", logging.EventUserMessage).
		Str("content", input).
		Msg("User: " + input)
	s.remember(ctx, memory.RoleUser, input)

	s.state = StateDispatching
	start := s.now()
	resp, err := s.inferer.Chat(ctx, s.model, s.Messages())
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	elapsed := s.now().Sub(start)

	if err != nil {
		s.state = StateAwaitingInput
		s.logger.Error().
			Str("event", logging.EventInferenceError).
			Str("kind", ollama.Kind(err).String()).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("Error generating response")
		return Outcome{Reply: FallbackReply, Failed: true, Err: err, Model: s.model, Duration: elapsed}, nil
	}

	reply := CleanReply(resp.Message.Content)
	s.logger.Info().
		Str("event", logging.EventAssistantReply).
		Str("model", resp.Model).
		Str("content", reply).
		Int("eval_count", resp.EvalCount).
		Dur("elapsed", elapsed).
		Msg(s.name + ": " + reply)
	s.remember(ctx, memory.RoleAssistant, reply)
	s.turns++

	out := Outcome{Reply: reply, Model: resp.Model, Duration: elapsed}
	if ContainsFarewell(input) && ContainsFarewell(reply) {
		s.state = StateTerminated
		out.Terminated = true
		s.End("farewell")
		return out, nil
	}

	s.state = StateAwaitingInput
	return out, nil
}

func (s *Session) remember(ctx context.Context, role memory.Role, content string) {
	turn, ok := s.store.Append(role, content)
	if !ok || s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, s.id, turn); err != nil {
		s.logger.Warn().
			Str("event", logging.EventArchiveError).
			Err(err).
			Msg("Failed to archive turn")
	}
}

// End logs the end of the session once. Later calls are no-ops.
func (s *Session) End(reason string) {
	if s.ended {
		return
	}
	s.ended = true
	s.logger.Info().
		Str("event", logging.EventSessionEnd).
		Str("reason", reason).
		Int("turns", s.turns).
		Msg("Session ended")
}

// Run reads lines from r and writes replies to w until both sides say
// goodbye. It returns nil on a farewell, io.EOF when input is exhausted,
// and the context error when ctx is done.
func (s *Session) Run(ctx context.Context, r LineReader, w io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			s.End("canceled")
			return err
		}

		fmt.Fprintln(w)
		input, err := r.ReadLine(s.prompt)
		if err != nil {
			switch {
			case errors.Is(err, ErrInterrupted):
				s.logger.Debug().
					Str("event", logging.EventInputError).
					Msg("Input line interrupted")
				continue
			case errors.Is(err, io.EOF):
				s.logger.Info().
					Str("event", logging.EventInputError).
					Msg("Input closed before a farewell")
				s.End("eof")
				return io.EOF
			default:
				s.logger.Error().
					Str("event", logging.EventInputError).
					Err(err).
					Msg("Failed to read input")
				s.End("input_error")
				return fmt.Errorf("failed to read input: %w", err)
			}
		}

		out, err := s.Step(ctx, input)
		if err != nil {
			return err
		}

		if out.Failed {
			if ctx.Err() != nil {
				s.End("canceled")
				return ctx.Err()
			}
			fmt.Fprintf(w, "%s: %s\n", s.name, FallbackReply)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", s.name, s.format(out.Reply))
		if out.Terminated {
			fmt.Fprintln(w, "Goodbye!")
			return nil
		}
	}
}
