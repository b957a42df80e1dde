// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for streaming providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Streaming event decoding and tool-call accumulation
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for streaming LLM providers.
//
// StreamTurn drives exactly one model round trip: it forwards incremental
// events to onEvent in provider emission order and returns the reduced
// result once the turn ends. onEvent is called from the same goroutine
// that called StreamTurn; no event is delivered after StreamTurn returns.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// StreamTurn streams one conversation turn.
	StreamTurn(ctx context.Context, req TurnRequest, onEvent func(StreamEvent)) (TurnResult, error)
}
