// Package telemetry wires OpenTelemetry for the polis server.
//
// Init installs stdout trace and metric exporters (or nothing, for "none").
// PassMetrics holds the scheduler's instruments:
//
//   - polis.passes.total (agent_id, outcome)
//   - polis.tool_calls.total (tool, status)
//   - polis.pass.duration in seconds
//
// plus one "polis.pass" span per pass.
package telemetry
