package driver

import (
	"context"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"arm64gen/internal/backend/arm64"
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
	"arm64gen/internal/pipeline"
	"arm64gen/internal/project"
	"arm64gen/internal/trace"
)

// EmitRequest describes one run over a set of unit files.
type EmitRequest struct {
	Files []string
	// BaseDir shortens file names in progress events and diagnostics.
	BaseDir string
	// OutputDir receives the .s files, mirroring the layout of the inputs
	// below BaseDir. Empty writes each file next to its input.
	OutputDir string
	Options   arm64.Options
	Jobs      int
	// Validate runs the structural checks before emitting.
	Validate bool
	// NoWrite keeps the assembly in memory (UnitResult.Asm) instead of
	// writing files.
	NoWrite bool
	// CheckOnly stops after validation.
	CheckOnly bool
	Cache     *Cache
	Progress pipeline.ProgressSink
}

// UnitResult is the outcome of one unit file. Err is set when any stage
// failed; the other units are unaffected.
type UnitResult struct {
	File      string
	Name      string
	Output    string
	Asm       string
	Frames    int
	Functions int
	Cached    bool
	Err       error
}

// Diagnostics converts Err for reporting.
func (r *UnitResult) Diagnostics() []diag.Diagnostic { return Diagnose(r.Name, r.Err) }

// EmitResult collects the per-unit outcomes in input order.
type EmitResult struct {
	Units   []UnitResult
	Timings *pipeline.Timings
}

// Failed returns the units whose Err is set.
func (r *EmitResult) Failed() []UnitResult {
	return lo.Filter(r.Units, func(u UnitResult, _ int) bool { return u.Err != nil })
}

// Diagnostics gathers the diagnostics of every failed unit, sorted.
func (r *EmitResult) Diagnostics() *diag.Bag {
	var all []diag.Diagnostic
	for i := range r.Units {
		all = append(all, r.Units[i].Diagnostics()...)
	}
	bag := diag.NewBag(min(len(all), math.MaxUint16))
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	for _, d := range all {
		rep.Report(d)
	}
	bag.Sort()
	return bag
}

// WriteError is a failure to write the output of a unit.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// EmitFiles runs load, validate, emit and write for every file of req,
// req.Jobs units at a time. A failing unit is recorded in its result and
// never stops the others; the returned error is only set when ctx is
// canceled.
func EmitFiles(ctx context.Context, req EmitRequest) (*EmitResult, error) {
	res := &EmitResult{
		Units:   make([]UnitResult, len(req.Files)),
		Timings: &pipeline.Timings{},
	}
	if len(req.Files) == 0 {
		return res, nil
	}
	names := pipeline.DisplayNames(req.Files, req.BaseDir)
	pipeline.Queued(req.Progress, names)

	tr := trace.FromContext(ctx)
	pass := trace.Begin(tr, trace.ScopePass, "emit_files", trace.CurrentSpan(ctx).SpanID)
	pass.WithExtra("files", strconv.Itoa(len(req.Files)))
	ctx = trace.WithSpan(ctx, pass)

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Files)))

	for i, file := range req.Files {
		r := &res.Units[i]
		r.File, r.Name = file, names[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.Err = emitOne(gctx, req, r, res.Timings)
			// отмена контекста останавливает всю группу, ошибки юнита нет
			if r.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pass.End("canceled")
		return res, err
	}
	failed := len(res.Failed())
	pass.WithExtra("failed", strconv.Itoa(failed))
	pass.End("")
	return res, nil
}

func emitOne(ctx context.Context, req EmitRequest, r *UnitResult, timings *pipeline.Timings) error {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeUnit, "unit:"+r.Name, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)
	err := runStages(ctx, req, r, timings)
	detail := ""
	if err != nil {
		detail = "error"
	} else if r.Cached {
		detail = "cached"
	}
	span.End(detail)
	return err
}

// stage wraps one step with progress reporting and timing.
func stage(req EmitRequest, timings *pipeline.Timings, name string, st pipeline.Stage, fn func() error) error {
	pipeline.Notify(req.Progress, name, st, pipeline.StatusWorking, nil, 0)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	timings.Add(st, elapsed)
	status := pipeline.StatusDone
	if err != nil {
		status = pipeline.StatusError
	}
	pipeline.Notify(req.Progress, name, st, status, err, elapsed)
	return err
}

func runStages(ctx context.Context, req EmitRequest, r *UnitResult, timings *pipeline.Timings) error {
	var u *linear.Unit
	if err := stage(req, timings, r.Name, pipeline.StageLoad, func() (err error) {
		u, err = LoadUnit(r.File)
		return err
	}); err != nil {
		return err
	}

	if req.Validate {
		if err := stage(req, timings, r.Name, pipeline.StageValidate, func() error {
			return linear.Validate(u)
		}); err != nil {
			return err
		}
	}

	if req.CheckOnly {
		return nil
	}

	var asm string
	if err := emitStage(ctx, req, r, timings, u, &asm); err != nil {
		return err
	}

	if req.NoWrite {
		r.Asm = asm
		return nil
	}
	r.Output = outputPath(req.OutputDir, r.Name, r.File)
	return stage(req, timings, r.Name, pipeline.StageWrite, func() error {
		return writeAsm(r.Output, asm)
	})
}

// emitStage serves the assembly from the cache when possible. Cache
// failures degrade to a plain emit.
func emitStage(ctx context.Context, req EmitRequest, r *UnitResult, timings *pipeline.Timings, u *linear.Unit, asm *string) error {
	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	var key project.Digest
	haveKey := false
	if req.Cache != nil {
		if k, err := CacheKey(u, req.Options); err == nil {
			key, haveKey = k, true
		}
	}
	if haveKey {
		start := time.Now()
		if e, ok, err := req.Cache.Get(key); err == nil && ok && e.Unit == u.Name {
			elapsed := time.Since(start)
			timings.Add(pipeline.StageEmit, elapsed)
			*asm = e.Asm
			r.Frames, r.Functions, r.Cached = e.Frames, e.Functions, true
			trace.Point(tr, trace.ScopeUnit, "cache_hit", r.Name, parent)
			if req.Progress != nil {
				req.Progress.OnEvent(pipeline.Event{File: r.Name, Stage: pipeline.StageEmit, Status: pipeline.StatusDone, Elapsed: elapsed, Cached: true})
			}
			return nil
		} else if err != nil {
			trace.Point(tr, trace.ScopeUnit, "cache_error", err.Error(), parent)
		}
	}

	err := stage(req, timings, r.Name, pipeline.StageEmit, func() error {
		out, err := arm64.EmitUnit(ctx, u, req.Options)
		if err != nil {
			return err
		}
		*asm = out.Asm
		r.Frames, r.Functions = out.Frames, out.Functions
		return nil
	})
	if err != nil {
		return err
	}
	if haveKey {
		entry := &CacheEntry{Unit: u.Name, Asm: *asm, Frames: r.Frames, Functions: r.Functions}
		if err := req.Cache.Put(key, entry); err != nil {
			trace.Point(tr, trace.ScopeUnit, "cache_error", err.Error(), parent)
		}
	}
	return nil
}

// outputPath places the .s file of a unit. name is the slash-separated
// display name; when it is relative the directory part is kept below outDir.
func outputPath(outDir, name, file string) string {
	if outDir == "" {
		return filepath.Join(filepath.Dir(file), pipeline.OutputName(file))
	}
	dir := path.Dir(name)
	if path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) || dir == "." || strings.HasPrefix(dir, "..") {
		return filepath.Join(outDir, pipeline.OutputName(file))
	}
	return filepath.Join(outDir, filepath.FromSlash(dir), pipeline.OutputName(file))
}

func writeAsm(p, asm string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return &WriteError{Path: p, Err: err}
	}
	if err := os.WriteFile(p, []byte(asm), 0o644); err != nil {
		return &WriteError{Path: p, Err: err}
	}
	return nil
}
