// Package template expands ${token} placeholders in test payloads.
//
// The token table is closed: ${timestamp}, ${date}, ${epoch}, ${uuid},
// ${run_id}, ${build_id} and ${resource:<logical-name>}. Expansion is a pure
// function of the payload, the clock and the id generator.
package template
