// Package diag defines the diagnostic model shared by the loader, the
// validator and the assembly emitter.
//
// Diagnostic is the central record: Severity, a numeric Code with a stable
// string ID (LIN/EMT/IO/PRJ ranges), a short Message, the compilation Unit it
// belongs to, and an optional Primary source Position taken from the debug
// information of the offending instruction. Notes add secondary context.
//
// Producers either build a Diagnostic directly or report through a Reporter;
// Bag collects a bounded number of diagnostics and provides deterministic
// sorting and deduplication for CLI output. FormatShortDiagnostics renders
// one line per entry:
//
//	error EMT2002 src/m.ml:4:2 message
//
// Package diag does no I/O.
package diag
