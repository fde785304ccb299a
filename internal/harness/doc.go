// Package harness runs the test phases of a session against a resolved
// function.
//
// The unit phase expands and sends every scenario event, checks the outcome
// against the scenario expectation, writes a per-scenario artifact, and runs
// the optional performance loop. The integration phase runs workflows,
// optionally inside a scope of ephemeral S3 resources that is always torn
// down. Both phases then collect logs and write summary.json,
// junit-results.xml and report.md into the phase directory.
//
// Failures of individual tests are recorded in the phase report; only
// artifact write failures and the session timeout are returned as errors.
package harness
