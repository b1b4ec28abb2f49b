package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/margin/internal/observability"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageClean    StageName = "clean"
	StageRender   StageName = "render"
	StageStatic   StageName = "static"
	StageManifest StageName = "manifest"
	StageInject   StageName = "inject"
)

// stage is one step of a build.
type stage struct {
	name StageName
	run  func(ctx context.Context, bs *buildState) error
}

// buildState is shared by the stages of a single run.
type buildState struct {
	outputDir string
	pages     []Page
	assets    int
	started   time.Time
}

// StageError names the stage that failed.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func runStages(ctx context.Context, log *slog.Logger, bs *buildState, stages []stage) error {
	names := make([]StageName, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.name)
	}
	observability.Logger(ctx, log).Debug("Executing pipeline", slog.Int("stages", len(stages)), slog.Any("order", names))

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: s.name, Err: err}
		}
		stageCtx := observability.WithStage(ctx, string(s.name))
		start := time.Now()
		if err := s.run(stageCtx, bs); err != nil {
			return &StageError{Stage: s.name, Err: err}
		}
		observability.Logger(stageCtx, log).Debug("Stage complete", slog.Duration("duration", time.Since(start)))
	}
	return nil
}
