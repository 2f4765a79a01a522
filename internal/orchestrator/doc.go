// Package orchestrator runs actor passes.
//
// A pass snapshots what the actor can see through its current Menu, asks the
// reasoning collaborator for a decision, executes the requested tool calls in
// order and persists the outcome. The Scheduler walks registered actors
// round-robin on a single goroutine, so passes never overlap.
package orchestrator
