// Package server assembles a running polis from configuration.
//
// New opens the SQLite store, initializes telemetry, builds the reasoning
// provider, restores and seeds rooms, and registers the configured actors.
// Run serves the dashboard and drives the scheduler until its context is
// cancelled, then shuts down in reverse order.
package server
