package driver

import (
	"context"

	"arm64gen/internal/pipeline"
)

// CheckFiles loads and validates every file without emitting anything.
func CheckFiles(ctx context.Context, files []string, baseDir string, jobs int, progress pipeline.ProgressSink) (*EmitResult, error) {
	return EmitFiles(ctx, EmitRequest{
		Files:     files,
		BaseDir:   baseDir,
		Jobs:      jobs,
		Validate:  true,
		CheckOnly: true,
		Progress:  progress,
	})
}
