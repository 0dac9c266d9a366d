package memory

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the model to run a named tool.
// Arguments holds the raw JSON object produced by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is one entry of a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Code       string     `json:"code,omitempty"`
}

func System(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func User(text string) Message      { return Message{Role: RoleUser, Content: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ToolResult builds a tool message answering the call with the given id.
func ToolResult(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, IsError: isError}
}

// HasToolCalls reports whether the message requests any tool execution.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Text returns the content trimmed of surrounding whitespace.
func (m Message) Text() string { return strings.TrimSpace(m.Content) }

// Clone returns a deep copy so callers can't alias tool call argument buffers.
func (m Message) Clone() Message {
	out := m
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			c.Arguments = append(json.RawMessage(nil), c.Arguments...)
			out.ToolCalls[i] = c
		}
	}
	return out
}
