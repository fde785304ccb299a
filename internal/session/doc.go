// Package session holds the identity of one harness run.
package session
