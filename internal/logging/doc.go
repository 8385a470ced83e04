// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the append-only event log used by luna.
//
// Every user message, assistant reply and error is written as one JSON line
// to the configured log file. Optional diagnostics can be mirrored to stderr
// in a human-readable console format.
//
// # Usage
//
//	sink, err := logging.Open(cfg.Log.File, cfg.Log.Level)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//	sink.Logger.Info().Str("event", logging.EventUserMessage).Msg(input)
package logging
