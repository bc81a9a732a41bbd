// Package logging provides the minimal logging interface used by agentchat.
//
// The Logger interface defines Debug, Info, Warn and Error with alternating
// key/value arguments. This package includes:
//
//   - ZapAdapter, the default production backend built by New
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "console"})
//	chat, err := groupchat.New(agents, groupchat.WithLogger(logger))
//
// Log events use dotted names such as "groupchat.round.started".
package logging
