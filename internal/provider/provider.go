// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider adapts remote language models to a single Backend
// interface. Each adapter makes exactly one attempt per call; retries and
// fallback order belong to the caller.
package provider

import (
	"context"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// EmptyResponse is returned in place of an empty model answer.
const EmptyResponse = "I couldn't generate a response. Please try again."

// DefaultHistoryWindow is the number of trailing turns forwarded to a model.
const DefaultHistoryWindow = 10

// Backend generates an answer from a system prompt, a user message and prior
// conversation turns.
type Backend interface {
	// Name identifies the backend in logs and results.
	Name() string

	// Configured reports whether the backend has the credentials it needs.
	// Unconfigured backends are skipped without being called.
	Configured() bool

	// Generate makes one call to the model. Failures are *Error values.
	Generate(ctx context.Context, userMessage, systemPrompt string, history []types.ConversationTurn) (string, error)
}

// Error is a failed model call. Message is safe to show to a user.
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NormalizeHistory drops user turns that repeat the current message, then
// keeps at most the last window turns. A non-positive window uses
// DefaultHistoryWindow.
func NormalizeHistory(history []types.ConversationTurn, userMessage string, window int) []types.ConversationTurn {
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	out := make([]types.ConversationTurn, 0, len(history))
	for _, turn := range history {
		if turn.Role == types.RoleUser && turn.Content == userMessage {
			continue
		}
		out = append(out, turn)
	}
	if len(out) > window {
		out = out[len(out)-window:]
	}
	return out
}
