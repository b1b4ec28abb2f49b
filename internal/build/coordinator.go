package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
	"git.home.luguber.info/inful/margin/internal/logfields"
	"git.home.luguber.info/inful/margin/internal/metrics"
	"git.home.luguber.info/inful/margin/internal/observability"
)

const tracerName = "git.home.luguber.info/inful/margin/internal/build"

// Pipeline produces the site into outputDir. It is only ever invoked while the
// Lock is held.
type Pipeline interface {
	Build(ctx context.Context, outputDir string) (Artifact, error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, outputDir string) (Artifact, error)

// Build implements Pipeline.
func (f PipelineFunc) Build(ctx context.Context, outputDir string) (Artifact, error) {
	return f(ctx, outputDir)
}

// Outcome is how a Run ended.
type Outcome int

const (
	OutcomeBuilt Outcome = iota
	OutcomeSuperseded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBuilt:
		return "built"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RevisionFunc resolves the source revision stamped on build events.
type RevisionFunc func(ctx context.Context) (string, error)

// Options configures a Coordinator. Zero values get working defaults.
type Options struct {
	OutputDir  string
	ConfigPath string

	Lock     *Lock
	Epochs   *EpochTracker
	Registry *Registry

	Notifier  Notifier
	Observers []Observer
	Recorder  metrics.Recorder
	Revision  RevisionFunc

	// BundleInfo logs a summary of the output tree after every build.
	BundleInfo bool

	Logger *slog.Logger
}

// Coordinator runs rebuild cycles against one output directory.
type Coordinator struct {
	pipeline Pipeline
	opts     Options
	tracer   trace.Tracer
}

// NewCoordinator wires a Coordinator around pipeline.
func NewCoordinator(pipeline Pipeline, opts Options) *Coordinator {
	if opts.Lock == nil {
		opts.Lock = NewLock()
	}
	if opts.Epochs == nil {
		opts.Epochs = NewEpochTracker(nil)
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Recorder = metrics.OrNoop(opts.Recorder)
	return &Coordinator{pipeline: pipeline, opts: opts, tracer: otel.Tracer(tracerName)}
}

// Lock returns the lock shared with request handlers.
func (c *Coordinator) Lock() *Lock { return c.opts.Lock }

// Epochs returns the coordinator's epoch tracker.
func (c *Coordinator) Epochs() *EpochTracker { return c.opts.Epochs }

// Registry returns the registry holding the active artifact.
func (c *Coordinator) Registry() *Registry { return c.opts.Registry }

// Run performs one rebuild cycle. A run that finds a newer epoch recorded once
// it holds the Lock returns OutcomeSuperseded without touching the output or
// notifying. Pipeline failures are wrapped with the configuration path.
func (c *Coordinator) Run(ctx context.Context) (Outcome, error) {
	epoch := c.opts.Epochs.Record()
	buildID := uuid.NewString()
	log := c.opts.Logger.With(logfields.BuildID(buildID), logfields.Epoch(int64(epoch)))

	ctx, span := c.tracer.Start(ctx, "build.run", trace.WithAttributes(
		attribute.String("build.id", buildID),
		attribute.Int64("build.epoch", int64(epoch)),
	))
	defer span.End()
	ctx = observability.WithBuildID(ctx, buildID)

	release, err := c.opts.Lock.Acquire(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock acquisition cancelled")
		return OutcomeFailed, err
	}
	defer release()

	if c.opts.Epochs.Superseded(epoch) {
		release()
		log.Debug("Superseded build discarded")
		span.SetAttributes(attribute.String("build.outcome", OutcomeSuperseded.String()))
		c.opts.Recorder.IncBuildOutcome(metrics.OutcomeSuperseded)
		c.emit(ctx, Event{BuildID: buildID, Type: EventSuperseded, Epoch: epoch})
		return OutcomeSuperseded, nil
	}

	start := time.Now()
	revision := c.revision(ctx, log)
	c.emit(ctx, Event{BuildID: buildID, Type: EventStarted, Epoch: epoch, Revision: revision})

	if existed, terr := c.opts.Registry.Teardown(ctx); existed {
		log.Info("Hard rebuild")
		if terr != nil {
			log.Warn("Teardown of previous build failed", logfields.Error(terr))
		}
	}

	artifact, err := c.pipeline.Build(ctx, c.opts.OutputDir)
	if err != nil {
		release()
		wrapped := ferrors.PipelineFailure(c.opts.ConfigPath, err)
		elapsed := time.Since(start)
		log.Error("Build failed", logfields.Error(wrapped), logfields.DurationMS(float64(elapsed.Milliseconds())))
		span.RecordError(err)
		span.SetStatus(codes.Error, wrapped.Message())
		c.opts.Recorder.IncBuildOutcome(metrics.OutcomeFailed)
		c.opts.Recorder.ObserveBuildDuration(elapsed)
		c.emit(ctx, Event{BuildID: buildID, Type: EventFailed, Epoch: epoch, Revision: revision, Duration: elapsed, Error: wrapped.Error()})
		return OutcomeFailed, wrapped
	}

	if c.opts.BundleInfo {
		if summary, serr := SummarizeOutput(c.opts.OutputDir); serr != nil {
			log.Warn("Could not summarize output", logfields.Output(c.opts.OutputDir), logfields.Error(serr))
		} else {
			log.Info("Bundle info", logfields.Output(c.opts.OutputDir), slog.String("summary", summary.String()))
		}
	}
	elapsed := time.Since(start)
	release()

	handle, aerr := c.opts.Registry.Activate(ctx, artifact)
	if aerr != nil {
		log.Warn("Disposing stale artifact failed", logfields.Error(aerr))
	}
	log.Info("Build complete",
		logfields.Version(handle.Version),
		logfields.Output(c.opts.OutputDir),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	span.SetAttributes(
		attribute.String("build.outcome", OutcomeBuilt.String()),
		attribute.Int64("build.version", int64(handle.Version)),
	)
	c.opts.Recorder.IncBuildOutcome(metrics.OutcomeSucceeded)
	c.opts.Recorder.ObserveBuildDuration(elapsed)
	c.emit(ctx, Event{BuildID: buildID, Type: EventSucceeded, Epoch: epoch, Revision: revision, Version: handle.Version, Duration: elapsed})

	c.opts.Notifier.Broadcast()
	return OutcomeBuilt, nil
}

func (c *Coordinator) revision(ctx context.Context, log *slog.Logger) string {
	if c.opts.Revision == nil {
		return ""
	}
	rev, err := c.opts.Revision(ctx)
	if err != nil {
		log.Debug("Source revision unavailable", logfields.Error(err))
		return ""
	}
	return rev
}

func (c *Coordinator) emit(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	for _, o := range c.opts.Observers {
		o.OnBuildEvent(ctx, ev)
	}
}
