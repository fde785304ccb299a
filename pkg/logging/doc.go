// Package logging provides the structured logger used across fnprobe.
//
// It wraps log/slog behind subsystem-tagged helpers so every line carries the
// component that produced it:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Resolver", "Resolved target %s", name)
//	logging.Warn("Logs", "Log extraction failed, continuing")
//	logging.Error("Resources", err, "Teardown of %s failed", id)
//
// Output is text by default; Init with FormatJSON switches to one JSON object
// per line, which is what CI log collectors usually want. Messages below the
// configured level are dropped before formatting.
package logging
