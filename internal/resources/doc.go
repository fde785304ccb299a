// Package resources manages short-lived S3 buckets and objects created for a
// single harness session.
//
// Every resource is tagged with the session id. WithResources guarantees that
// whatever was provisioned is torn down on every exit path; teardown failures
// are returned as orphans and can be cleaned up later with Sweep.
package resources
