// Package session houses concrete implementations of core.HistoryStore.
// The interface itself lives in core so that the orchestrator does not
// depend on concrete storage.
//
// Add additional backends in sub-packages without changing calling code;
// only the wiring layer decides which implementation to instantiate.
package session
