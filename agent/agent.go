// Orchestration loop: drives repeated provider round trips, interleaving
// model-requested tool executions with streamed output.
//
// This is THE canonical implementation of the loop; every conversation
// request goes through Session.Run.
//
// Information Hiding:
// - Loop state machine internals hidden
// - Provider communication hidden
// - Tool execution coordination hidden
// - Synthetic tool-exchange turns never escape the loop

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/inkwell/events"
	"github.com/inkwell-ai/inkwell/llm"
	"github.com/inkwell-ai/inkwell/prompt"
	"github.com/inkwell-ai/inkwell/storage"
	"github.com/inkwell-ai/inkwell/tools"
)

// ErrTurnBudget is returned when the loop exhausts its round-trip budget
// without the provider reaching a terminal stop reason.
var ErrTurnBudget = errors.New("turn budget exceeded")

// Config bounds and parameterizes one orchestration run.
type Config struct {
	// MaxTurns caps provider round trips per run. Zero means the default.
	MaxTurns int

	// WebSearch offers the provider-side search tool for this agent.
	WebSearch        bool
	WebSearchMaxUses int

	AgentName        string
	AgentDescription string
	ProjectID        string
	ProjectName      string
}

// DefaultMaxTurns bounds runs whose config leaves MaxTurns unset.
const DefaultMaxTurns = 12

// Result is the outcome of a completed run. The caller persists the
// transcript; the loop itself never writes conversation history.
type Result struct {
	// FinalText is the assistant text of the whole run, in stream order.
	FinalText string

	// Turns is the number of provider round trips made.
	Turns int

	Usage llm.TokenUsage
}

// Session is the per-request state of one orchestration run. Each request
// owns its own session: message list, active document and store handle are
// never shared across requests.
type Session struct {
	provider   llm.Provider
	dispatcher *tools.Dispatcher
	config     Config
	log        zerolog.Logger

	active   *tools.ActiveDocument
	messages []llm.Message
}

// NewSession creates a session for one request.
func NewSession(provider llm.Provider, dispatcher *tools.Dispatcher, config Config, log zerolog.Logger) *Session {
	return &Session{
		provider:   provider,
		dispatcher: dispatcher,
		config:     config,
		log:        log,
	}
}

// WithActiveDocument sets the document open for editing in this session.
func (s *Session) WithActiveDocument(doc *tools.ActiveDocument) *Session {
	s.active = doc
	return s
}

// WithHistory seeds the conversation with persisted prior turns.
func (s *Session) WithHistory(turns []storage.Turn) *Session {
	for _, t := range turns {
		switch t.Role {
		case llm.RoleAssistant:
			s.messages = append(s.messages, llm.AssistantText(t.Content))
		default:
			s.messages = append(s.messages, llm.UserText(t.Content))
		}
	}
	return s
}

// ActiveDocument returns the session's open document, nil when none is.
func (s *Session) ActiveDocument() *tools.ActiveDocument {
	return s.active
}

// Run executes the loop for one user message, forwarding stream events to
// sink in emission order. It returns once the provider reports a terminal
// stop reason with no pending tool call, the context is cancelled, the sink
// fails (client gone), or the turn budget is exhausted.
func (s *Session) Run(ctx context.Context, userMessage string, sink events.Sink) (Result, error) {
	maxTurns := s.config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	s.messages = append(s.messages, llm.UserText(userMessage))

	var result Result
	var allText strings.Builder

	for turn := 0; turn < maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled: %w", err)
		}

		// The prompt embeds the document content as of now, not as of
		// request start: earlier iterations may have edited it.
		req := llm.TurnRequest{
			System:           s.buildSystemPrompt(),
			Messages:         s.messages,
			Tools:            tools.Catalog(s.active != nil),
			WebSearch:        s.config.WebSearch,
			WebSearchMaxUses: s.config.WebSearchMaxUses,
		}

		var sinkErr error
		turnResult, err := s.provider.StreamTurn(ctx, req, func(ev llm.StreamEvent) {
			if sinkErr != nil {
				return
			}
			switch ev.Kind {
			case llm.EventTextDelta:
				sinkErr = sink.Send(events.Text(ev.Text))
			case llm.EventSearchStarted:
				sinkErr = sink.Send(events.WebSearchStarted())
			case llm.EventCitations:
				sinkErr = sink.Send(events.WebSearchCitations(ev.Citations))
			}
		})
		if err != nil {
			return result, fmt.Errorf("provider turn %d: %w", turn+1, err)
		}

		result.Turns++
		result.Usage.InputTokens += turnResult.Usage.InputTokens
		result.Usage.OutputTokens += turnResult.Usage.OutputTokens
		allText.WriteString(turnResult.Text)

		if sinkErr != nil {
			// Client is gone; stop issuing provider calls. Side effects
			// already applied stay applied.
			return result, fmt.Errorf("output sink closed: %w", sinkErr)
		}

		s.log.Debug().
			Int("turn", turn+1).
			Str("stop_reason", string(turnResult.StopReason)).
			Msg("provider turn complete")

		switch {
		case turnResult.StopReason == llm.StopToolUse && turnResult.ToolCall != nil:
			call := turnResult.ToolCall
			outcome := s.dispatcher.Dispatch(ctx, s.config.ProjectID, s.active, call.Name, call.ArgsJSON)
			if outcome.Notification != nil {
				if err := sink.Send(*outcome.Notification); err != nil {
					return result, fmt.Errorf("output sink closed: %w", err)
				}
			}
			// Synthetic tool-exchange pair: lives only in this run's
			// message list, never in the persisted conversation.
			s.messages = append(s.messages,
				turnResult.Assistant,
				llm.UserToolResult(call.ID, outcome.ResultText, outcome.IsError),
			)

		case turnResult.StopReason == llm.StopPauseTurn:
			// Single-turn generation budget ran out mid-response. Append
			// the accumulated blocks and resume; this is a continuation,
			// not a tool round trip.
			s.messages = append(s.messages, turnResult.Assistant)

		default:
			result.FinalText = allText.String()
			return result, nil
		}
	}

	s.log.Warn().Int("max_turns", maxTurns).Msg("turn budget exhausted")
	return result, fmt.Errorf("%w after %d provider calls", ErrTurnBudget, maxTurns)
}

func (s *Session) buildSystemPrompt() string {
	pc := prompt.Context{
		AgentName:        s.config.AgentName,
		AgentDescription: s.config.AgentDescription,
		ProjectName:      s.config.ProjectName,
		WebSearch:        s.config.WebSearch,
	}
	if s.active != nil {
		pc.DocumentID = s.active.ID
		pc.DocumentTitle = s.active.Title
		pc.DocumentType = s.active.DocType
		pc.DocumentContent = s.active.Content
		pc.Selection = s.active.Selection
	}
	return prompt.Build(pc)
}
