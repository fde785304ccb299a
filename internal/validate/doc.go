// Package validate derives analysis signals from invocation outcomes and
// checks outcomes against declarative expectations.
package validate
