// Package history keeps a sqlite record of every phase report written
// under a results directory, so trends can be inspected across sessions.
package history
