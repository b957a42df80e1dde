// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockKind discriminates the content block variants of a Message.
type BlockKind int

const (
	// BlockText is a plain text content block.
	BlockText BlockKind = iota
	// BlockToolUse is a model-requested tool invocation.
	BlockToolUse
	// BlockToolResult is the caller-supplied result of a tool invocation.
	BlockToolResult
)

// Block is one content block of a conversation message.
type Block struct {
	Kind BlockKind

	// BlockText
	Text string

	// BlockToolUse / BlockToolResult
	ToolUseID string
	ToolName  string
	ArgsJSON  json.RawMessage

	// BlockToolResult
	Content string
	IsError bool
}

// TextBlock creates a plain text block.
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ToolUseBlock creates a tool invocation block.
func ToolUseBlock(id, name string, args json.RawMessage) Block {
	return Block{Kind: BlockToolUse, ToolUseID: id, ToolName: name, ArgsJSON: args}
}

// ToolResultBlock creates a tool result block.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Kind: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one conversation turn: a role plus ordered content blocks.
type Message struct {
	Role   string
	Blocks []Block

	// native is a provider-specific continuation payload, set and consumed
	// by the same provider implementation. Nil for caller-built messages.
	native any
}

// UserText creates a user message with a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Blocks: []Block{TextBlock(text)}}
}

// AssistantText creates an assistant message with a single text block.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []Block{TextBlock(text)}}
}

// UserToolResult creates a user message carrying a single tool result block.
func UserToolResult(toolUseID, content string, isError bool) Message {
	return Message{Role: RoleUser, Blocks: []Block{ToolResultBlock(toolUseID, content, isError)}}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolDefinition defines a client-executed tool offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema object
}

// StopReason reports why the provider ended a turn.
type StopReason string

const (
	// StopToolUse means the model requested a tool invocation and is waiting
	// for its result.
	StopToolUse StopReason = "tool_use"
	// StopPauseTurn means the response exceeded a single-turn generation
	// budget and must be resumed with the accumulated content appended.
	StopPauseTurn StopReason = "pause_turn"
	// StopEndTurn means the model finished its response.
	StopEndTurn StopReason = "end_turn"
	// StopMaxTokens means the response hit the output token limit.
	StopMaxTokens StopReason = "max_tokens"
	// StopOther covers stop reasons with no special loop handling.
	StopOther StopReason = "other"
)

// ToolCall is a completed model-requested tool invocation. ArgsJSON is the
// raw argument string exactly as emitted by the model and must be treated
// as untrusted input.
type ToolCall struct {
	ID       string
	Name     string
	ArgsJSON json.RawMessage
}

// Citation references a source the model cited in generated text.
type Citation struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	CitedText string `json:"cited_text,omitempty"`
}

// StreamEventKind discriminates streaming events.
type StreamEventKind int

const (
	// EventTextDelta carries a verbatim chunk of assistant output text.
	EventTextDelta StreamEventKind = iota
	// EventToolCallStart signals a tool-use content block opened.
	EventToolCallStart
	// EventToolCallDelta carries a partial JSON argument fragment.
	EventToolCallDelta
	// EventSearchStarted signals a server-executed web search began.
	EventSearchStarted
	// EventCitations carries the citations buffered for a closed text block.
	EventCitations
)

// StreamEvent is one incremental event from a provider turn.
type StreamEvent struct {
	Kind StreamEventKind

	Text string // EventTextDelta

	ToolID       string // EventToolCallStart, EventToolCallDelta
	ToolName     string
	ArgsFragment string // EventToolCallDelta

	Citations []Citation // EventCitations
}

// TokenUsage contains token usage statistics for one provider turn.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// TurnRequest is the input for one provider round trip.
type TurnRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition

	// WebSearch offers the provider's server-executed web search tool,
	// capped at WebSearchMaxUses invocations, when supported.
	WebSearch        bool
	WebSearchMaxUses int
}

// TurnResult is the outcome of one provider round trip.
type TurnResult struct {
	// Text is the concatenated assistant text of this turn.
	Text string

	// Assistant is the full accumulated assistant turn, provider-ready for
	// appending to the message list on tool_use and pause_turn continuations.
	Assistant Message

	// ToolCall is the completed client tool invocation, if the turn stopped
	// for one. Nil otherwise.
	ToolCall *ToolCall

	StopReason StopReason
	Usage      TokenUsage
}
