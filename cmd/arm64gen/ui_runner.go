package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"arm64gen/internal/driver"
	"arm64gen/internal/pipeline"
	"arm64gen/internal/ui"
)

type emitOutcome struct {
	result *driver.EmitResult
	err    error
}

// runEmitWithUI runs req while a progress model renders its events.
func runEmitWithUI(ctx context.Context, title string, req *driver.EmitRequest) (*driver.EmitResult, error) {
	if req == nil {
		return nil, fmt.Errorf("missing emit request")
	}
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan emitOutcome, 1)

	last := pipeline.StageWrite
	if req.CheckOnly {
		last = pipeline.StageValidate
	} else if req.NoWrite {
		last = pipeline.StageEmit
	}
	names := pipeline.DisplayNames(req.Files, req.BaseDir)

	go func() {
		reqCopy := *req
		reqCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := driver.EmitFiles(ctx, reqCopy)
		outcomeCh <- emitOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, last, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	if uiErr != nil {
		// модель больше не читает канал
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
