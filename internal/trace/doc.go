// Package trace records what arm64gen is doing while it runs.
//
// Events are grouped in spans. Scopes nest from coarse to fine:
//
//   - ScopeDriver: one CLI command
//   - ScopePass: one pipeline stage (load, validate, emit, write)
//   - ScopeUnit: one compilation unit
//   - ScopeFunction: one function inside a unit
//
// The level decides how deep tracing goes: phase stops at passes, detail
// adds units, debug adds functions.
//
//	tr, _ := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream})
//	ctx = trace.WithTracer(ctx, tr)
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeUnit, "emit_unit:camlFoo", 0)
//	defer span.End("")
//
// A ring tracer keeps the last events in memory so they can be dumped when a
// run fails or is interrupted. The heartbeat emits periodic events that tell
// a hang from a slow unit.
package trace
