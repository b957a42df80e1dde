// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Streaming event decoding and per-block accumulation
// - Server-side web search tool wiring
// - pause_turn continuation payload construction

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float64) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// toolAccumulator collects the incrementally streamed argument JSON of one
// open tool_use content block. The buffer is only valid JSON once the block
// closes.
type toolAccumulator struct {
	index int64
	id    string
	name  string
	args  strings.Builder
}

// StreamTurn streams one conversation turn, forwarding events in emission
// order and reducing the stream into a TurnResult.
func (p *AnthropicProvider) StreamTurn(ctx context.Context, req TurnRequest, onEvent func(StreamEvent)) (TurnResult, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    convertMessages(req.Messages),
		Temperature: anthropic.Float(p.temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	params.Tools = convertTools(req.Tools)
	if req.WebSearch {
		maxUses := req.WebSearchMaxUses
		if maxUses <= 0 {
			maxUses = 5
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(int64(maxUses)),
			},
		})
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	var (
		msg      anthropic.Message
		textBuf  strings.Builder
		open     *toolAccumulator // at most one client tool block open per turn
		done     *ToolCall
		cites    []Citation // buffered for the currently open text block
		hasCites bool
	)

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return TurnResult{}, fmt.Errorf("accumulate stream event: %w", err)
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			switch variant.ContentBlock.Type {
			case "tool_use":
				open = &toolAccumulator{
					index: variant.Index,
					id:    variant.ContentBlock.ID,
					name:  variant.ContentBlock.Name,
				}
				onEvent(StreamEvent{
					Kind:     EventToolCallStart,
					ToolID:   open.id,
					ToolName: open.name,
				})
			case "server_tool_use":
				// Executed provider-side; surface the lifecycle only.
				onEvent(StreamEvent{
					Kind:     EventSearchStarted,
					ToolID:   variant.ContentBlock.ID,
					ToolName: variant.ContentBlock.Name,
				})
			}

		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				textBuf.WriteString(delta.Text)
				onEvent(StreamEvent{Kind: EventTextDelta, Text: delta.Text})
			case anthropic.InputJSONDelta:
				if open == nil || open.index != variant.Index || delta.PartialJSON == "" {
					continue
				}
				open.args.WriteString(delta.PartialJSON)
				onEvent(StreamEvent{
					Kind:         EventToolCallDelta,
					ToolID:       open.id,
					ToolName:     open.name,
					ArgsFragment: delta.PartialJSON,
				})
			case anthropic.CitationsDelta:
				cites = append(cites, Citation{
					Title:     delta.Citation.Title,
					URL:       delta.Citation.URL,
					CitedText: delta.Citation.CitedText,
				})
				hasCites = true
			}

		case anthropic.ContentBlockStopEvent:
			if open != nil && open.index == variant.Index {
				raw := open.args.String()
				if raw == "" {
					raw = "{}"
				}
				done = &ToolCall{ID: open.id, Name: open.name, ArgsJSON: json.RawMessage(raw)}
				open = nil
			}
			if hasCites {
				onEvent(StreamEvent{Kind: EventCitations, Citations: cites})
				cites = nil
				hasCites = false
			}
		}
	}

	if err := stream.Err(); err != nil {
		return TurnResult{}, fmt.Errorf("anthropic stream: %w", err)
	}

	assistant := assistantMessage(&msg)

	return TurnResult{
		Text:       textBuf.String(),
		Assistant:  assistant,
		ToolCall:   done,
		StopReason: mapStopReason(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// assistantMessage converts the accumulated response into a Message that can
// be appended to the conversation. The provider-native param preserves
// server-side tool blocks that have no portable representation.
func assistantMessage(msg *anthropic.Message) Message {
	out := Message{Role: RoleAssistant, native: msg.ToParam()}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Blocks = append(out.Blocks, TextBlock(variant.Text))
		case anthropic.ToolUseBlock:
			out.Blocks = append(out.Blocks, ToolUseBlock(variant.ID, variant.Name, json.RawMessage(variant.Input)))
		}
	}
	return out
}

// mapStopReason maps the provider stop reason onto the loop's control set.
func mapStopReason(reason anthropic.StopReason) StopReason {
	switch strings.ToLower(string(reason)) {
	case "tool_use":
		return StopToolUse
	case "pause_turn":
		return StopPauseTurn
	case "end_turn", "stop_sequence":
		return StopEndTurn
	case "max_tokens":
		return StopMaxTokens
	default:
		return StopOther
	}
}

// convertMessages converts portable messages to Anthropic format. Messages
// produced by this provider carry their accumulated param and are reused
// verbatim, so pause_turn continuations keep server-side tool blocks intact.
func convertMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if param, ok := m.native.(anthropic.MessageParam); ok {
			out = append(out, param)
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			switch b.Kind {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				var input map[string]any
				_ = json.Unmarshal(b.ArgsJSON, &input)
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    b.ToolUseID,
						Name:  b.ToolName,
						Input: input,
					},
				})
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// convertTools converts tool definitions to Anthropic format.
func convertTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		properties, _ := t.InputSchema["properties"].(map[string]any)
		var required []string
		switch req := t.InputSchema["required"].(type) {
		case []string:
			required = req
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}

		param := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
