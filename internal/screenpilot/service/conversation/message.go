package conversation

import (
	"time"
)

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-issued call id when available, otherwise a
	// locally generated one. Tool results reference it.
	ID string `json:"id"`

	// Group is the owning tool group or server name.
	Group string `json:"group"`

	// Name is the tool name within the group.
	Name string `json:"name"`

	// Args is the argument map as decoded from the model output.
	Args map[string]interface{} `json:"args,omitempty"`
}

// Message is a single entry in a conversation history.
//
// This is the internal representation; conversion to each provider's
// transcript shape happens in the provider adapters.
type Message struct {
	// Role is the sender role (user/assistant/tool).
	Role Role `json:"role"`

	// Content is the text content. For assistant messages this is the
	// model's thought; for tool messages it is the (truncated) result.
	Content string `json:"content"`

	// AgentRole tags the phase that produced this message ("act",
	// "observe", ...). Used by the global history.
	AgentRole string `json:"agent_role,omitempty"`

	// ToolCall is set on assistant messages that request a tool.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// ToolCallID links a tool-result message back to its call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName is the "group.tool" label on tool-result messages.
	ToolName string `json:"tool_name,omitempty"`

	// CreatedAt is when this message was appended.
	CreatedAt time.Time `json:"created_at"`
}

// IsUnresolvedToolCall reports whether this message is a tool call that
// still awaits its paired result.
func (m *Message) IsUnresolvedToolCall() bool {
	return m.Role == RoleAssistant && m.ToolCall != nil
}
