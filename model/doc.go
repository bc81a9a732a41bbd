// Package model defines the vendor neutral Model interface used by agents and
// by model-driven selection and termination strategies, together with:
//
//   - MockModel, a scripted in-memory model for tests and examples
//   - NewCircuitBreaker, a gobreaker guard around any Model
//   - NewRateLimited, a token bucket guard around any Model
//
// Concrete vendor adapters live in the openai and anthropic sub-packages.
package model
