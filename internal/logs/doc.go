// Package logs collects execution logs of the function under test, either
// inline from an invocation or for a time window from CloudWatch Logs, and
// classifies them by severity.
package logs
