// Package perf measures the latency of the function under test over
// repeated invocations on a bounded worker pool.
package perf
