// Package agent contains the agent adapters taking turns in a group chat.
//
//   - BaseAgent carries identity and capabilities; embed it in custom agents
//   - ModelAgent wraps a model.Model with instructions and tool definitions
//   - FuncAgent wraps a plain Go function
//   - HumanAgent relays turns to the run's human-input collaborator
//   - SequentialAgent, ParallelAgent and LoopAgent compose several agents
//     into one participant
//
// Adapters never write to the conversation. They receive a read-only view and
// return response messages; the orchestrator commits them.
package agent
