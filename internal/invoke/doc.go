// Package invoke calls the function under test and turns every result,
// including transport failures and panics, into an Outcome.
package invoke
