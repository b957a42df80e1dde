// OpenAI-compatible Provider implementation using go-openai.
//
// Information Hiding:
// - Chat-completion streaming decoded into the shared event model
// - Tool-call delta accumulation by index
// - DeepSeek reuses this implementation with a different base URL
//
// OpenAI-compatible APIs have no pause_turn and no server-executed web
// search, so those portions of the event model are never emitted here.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs.
type OpenAIProvider struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float64) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		name:        "openai",
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: float32(temperature),
	}
}

// NewDeepSeekProvider creates a provider for DeepSeek's OpenAI-compatible API.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float64) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		name:        "deepseek",
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: float32(temperature),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// StreamTurn streams one conversation turn.
func (p *OpenAIProvider) StreamTurn(ctx context.Context, req TurnRequest, onEvent func(StreamEvent)) (TurnResult, error) {
	request := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages:    convertToOpenAIMessages(req.System, req.Messages),
		Tools:       convertToOpenAITools(req.Tools),
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return TurnResult{}, fmt.Errorf("chat completion stream failed: %w", err)
	}
	defer stream.Close()

	var (
		textBuf      strings.Builder
		finishReason openai.FinishReason
		callID       string
		callName     string
		callArgs     strings.Builder
		callStarted  bool
	)

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return TurnResult{}, fmt.Errorf("stream error: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}

		choice := response.Choices[0]
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}

		if choice.Delta.Content != "" {
			textBuf.WriteString(choice.Delta.Content)
			onEvent(StreamEvent{Kind: EventTextDelta, Text: choice.Delta.Content})
		}

		// Only the first tool call of a turn is honored: the loop dispatches
		// one call per round trip.
		for _, tc := range choice.Delta.ToolCalls {
			if tc.Index != nil && *tc.Index > 0 {
				continue
			}
			if tc.ID != "" {
				callID = tc.ID
			}
			if tc.Function.Name != "" {
				callName = tc.Function.Name
			}
			if !callStarted && callID != "" && callName != "" {
				callStarted = true
				onEvent(StreamEvent{Kind: EventToolCallStart, ToolID: callID, ToolName: callName})
			}
			if tc.Function.Arguments != "" {
				callArgs.WriteString(tc.Function.Arguments)
				onEvent(StreamEvent{
					Kind:         EventToolCallDelta,
					ToolID:       callID,
					ToolName:     callName,
					ArgsFragment: tc.Function.Arguments,
				})
			}
		}
	}

	result := TurnResult{
		Text:       textBuf.String(),
		StopReason: mapFinishReason(finishReason),
	}

	assistant := Message{Role: RoleAssistant}
	if result.Text != "" {
		assistant.Blocks = append(assistant.Blocks, TextBlock(result.Text))
	}
	if callName != "" {
		raw := callArgs.String()
		if raw == "" {
			raw = "{}"
		}
		result.ToolCall = &ToolCall{ID: callID, Name: callName, ArgsJSON: json.RawMessage(raw)}
		assistant.Blocks = append(assistant.Blocks, ToolUseBlock(callID, callName, json.RawMessage(raw)))
		result.StopReason = StopToolUse
	}
	result.Assistant = assistant

	return result, nil
}

// mapFinishReason maps OpenAI finish reasons onto the loop's control set.
func mapFinishReason(reason openai.FinishReason) StopReason {
	switch reason {
	case openai.FinishReasonToolCalls:
		return StopToolUse
	case openai.FinishReasonStop:
		return StopEndTurn
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopOther
	}
}

// convertToOpenAIMessages converts portable messages to OpenAI chat format.
// Tool results become role "tool" messages keyed by tool call ID.
func convertToOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Text(),
			}
			for _, b := range m.Blocks {
				if b.Kind != BlockToolUse {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   b.ToolUseID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.ToolName,
						Arguments: string(b.ArgsJSON),
					},
				})
			}
			out = append(out, msg)
		default:
			for _, b := range m.Blocks {
				switch b.Kind {
				case BlockText:
					out = append(out, openai.ChatCompletionMessage{
						Role:    openai.ChatMessageRoleUser,
						Content: b.Text,
					})
				case BlockToolResult:
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    b.Content,
						ToolCallID: b.ToolUseID,
					})
				}
			}
		}
	}
	return out
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return out
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
