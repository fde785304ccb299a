// Package workflow executes integration workflows: ordered invoke and wait
// steps run against the function under test, each validated against its
// expectation.
//
// Every execution moves through Pending, Running and then Completed or
// Failed. A failing step marks the workflow Failed but the remaining steps
// still run, and other workflows are never affected.
package workflow
