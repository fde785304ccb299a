// Package report turns the results of a phase into its artifacts.
//
// A Builder collects scenario outcomes, workflow executions, performance
// metrics and the log summary of one phase and produces an immutable
// PhaseReport. The writers render that value as:
//
//   - summary.json, the machine report
//   - junit-results.xml, for CI test reporting
//   - report.md, a readable summary with reproduce commands for failures
//
// The machine and CI renderings depend only on the report value. Rendering
// the same report twice yields the same bytes; only the timestamp field of
// summary.json changes between builds.
package report
