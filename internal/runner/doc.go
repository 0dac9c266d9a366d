// Package runner drives a conversation through the agent's control loop.
//
// States:
//
//	RETRIEVE -> REASON -> DONE
//	              |  ^
//	              v  |
//	              ACT
//
// RETRIEVE injects the nearest prior example after the system prompt. REASON
// asks the model for the next assistant message. ACT runs the requested tools
// and appends their results, correlated by call ID and in request order. The
// number of REASON phases per turn is capped.
//
// Invariant:
//   - each assistant tool call is answered by exactly one tool result that
//     immediately follows it, so tool_use/tool_result pairs stay adjacent.
package runner
