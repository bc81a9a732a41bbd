// Package core provides the foundational domain types and interfaces used by
// agentchat. It defines the core abstractions for:
//
//   - Messages and their content parts (text, data, function calls and results)
//   - History, the append-only conversation ledger of one group chat
//   - Agents, the opaque capability providers taking turns in a conversation
//   - RunContext / ToolContext, the per-run and per-call execution scopes
//   - Errors shared by the selection, termination and dispatch layers
//
// Implementation concerns (strategies, dispatch, orchestration, concrete
// agents) live in sibling packages and depend on the small interfaces here.
package core
