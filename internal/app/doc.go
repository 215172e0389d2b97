// Package app owns the application state.
//
// State transitions are pure functions in state.go: each takes a State and
// returns a new one, which keeps them trivially testable. Controller runs
// those functions on a single goroutine that also receives remote snapshots
// and save completions, so user commands, pushes from other users and
// persistence are applied in one well-defined order.
package app
