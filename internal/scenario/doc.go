// Package scenario defines the declarative test documents, unit scenarios and
// integration workflows, and loads them from disk.
//
// Documents are JSON (or YAML, converted to JSON first) and are checked
// against a JSON Schema generated from the Go types before being decoded.
// A missing document is replaced by a minimal default which is written back
// to the same path.
package scenario
