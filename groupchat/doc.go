// Package groupchat runs a multi-agent conversation.
//
// A GroupChat owns the canonical history, the participants, a selection
// strategy, a termination strategy and a function-call dispatcher. Each run
// repeats one round until a policy ends it:
//
//	SELECTING → INVOKING → DISPATCHING_FUNCTIONS → APPENDING → CHECKING_TERMINATION
//
// The orchestrator is the only writer of the history. Agents see a
// read-only view and the dispatcher commits call/result pairs through a
// Conversation implemented by the run.
//
//	chat, err := groupchat.New([]core.Agent{writer, reviewer},
//	    groupchat.WithTermination(termination.AnyOf(
//	        termination.NewKeyword([]string{"APPROVED"}),
//	        termination.NewIteration(10),
//	    )),
//	)
//	res, err := chat.Invoke(ctx, "Write a slogan")
package groupchat
