// Package memory holds the conversation model shared by the agent loop.
//
// Model:
//   - Message: role + text, optional tool calls (assistant) or a tool result
//     correlation id (tool).
//   - Conversation: append-only ordered sequence; a tool result must answer a
//     tool call made earlier in the same conversation.
//   - Transcripts: JSON persistence of whole conversations, tool blocks included.
package memory
