package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrOrphanToolResult is returned when a tool result does not answer any earlier tool call.
var ErrOrphanToolResult = errors.New("tool result has no matching tool call")

// Conversation is an append-only message sequence owned by a single turn.
// It is not safe for concurrent use.
type Conversation struct {
	msgs    []Message
	callIDs map[string]struct{}
}

// NewConversation seeds a conversation with msgs, validating tool-result ordering.
func NewConversation(msgs ...Message) (*Conversation, error) {
	c := &Conversation{callIDs: make(map[string]struct{})}
	if err := c.Append(msgs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Append adds messages to the end of the conversation. Either all messages are
// appended or none are.
func (c *Conversation) Append(msgs ...Message) error {
	pending := make(map[string]struct{})
	for i, m := range msgs {
		for _, call := range m.ToolCalls {
			pending[call.ID] = struct{}{}
		}
		if m.Role != RoleTool {
			continue
		}
		_, seen := c.callIDs[m.ToolCallID]
		_, inBatch := pending[m.ToolCallID]
		if !seen && !inBatch {
			return fmt.Errorf("append message %d (id %q): %w", i, m.ToolCallID, ErrOrphanToolResult)
		}
	}
	for _, m := range msgs {
		c.msgs = append(c.msgs, m.Clone())
	}
	for id := range pending {
		c.callIDs[id] = struct{}{}
	}
	return nil
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.msgs) }

// Messages returns a copy of the sequence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Clone()
	}
	return out
}

// Last returns the newest message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1].Clone(), true
}

// FirstUser returns the first user-authored message, the original query of the conversation.
func (c *Conversation) FirstUser() (Message, bool) {
	for _, m := range c.msgs {
		if m.Role == RoleUser {
			return m.Clone(), true
		}
	}
	return Message{}, false
}

func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
