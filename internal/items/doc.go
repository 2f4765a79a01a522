// Package items models simulated items and talks to the reasoning
// collaborator to create and drive them.
//
// An Item pairs a Template (name, description, state parameters and named
// interactions with typed inputs and outputs) with a string State map.
// Interaction outcomes are merged key by key: keys in the delta overwrite,
// keys absent from the delta are kept. Reset restores the state the item was
// created with.
//
// The Simulator does not know about rooms or ownership; those rules live in
// the polis package.
package items
