package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/criticalcss"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
	"git.home.luguber.info/inful/margin/internal/logfields"
)

// StaticPrefix is where the static directory is copied inside the output.
const StaticPrefix = "static"

// Options configures a MarkdownPipeline.
type Options struct {
	ContentDir string
	StaticDir  string
	SiteTitle  string
	BaseDir    string
	// Clean empties the output directory before rendering.
	Clean         bool
	IncludeDrafts bool
	// Stylesheets are linked from every page.
	Stylesheets []string
	// ReloadSnippet is emitted into every page's <head> while serving.
	ReloadSnippet string
	// Injector embeds critical CSS after rendering. Nil skips the step.
	Injector *criticalcss.Injector
	Revision build.RevisionFunc
	Logger   *slog.Logger
}

// MarkdownPipeline renders Markdown content into static HTML.
type MarkdownPipeline struct {
	opts Options
}

// New returns a pipeline for opts.
func New(opts Options) *MarkdownPipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MarkdownPipeline{opts: opts}
}

// Build implements build.Pipeline.
func (p *MarkdownPipeline) Build(ctx context.Context, outputDir string) (build.Artifact, error) {
	bs := &buildState{outputDir: outputDir, started: time.Now()}
	stages := []stage{
		{name: StageClean, run: p.clean},
		{name: StageRender, run: p.render},
		{name: StageStatic, run: p.copyStatic},
		{name: StageManifest, run: p.manifest},
	}
	if p.opts.Injector != nil {
		stages = append(stages, stage{name: StageInject, run: p.inject})
	}
	if err := runStages(ctx, p.opts.Logger, bs, stages); err != nil {
		return nil, err
	}
	p.opts.Logger.Info("Rendered site",
		logfields.Output(outputDir),
		slog.Int("pages", len(bs.pages)),
		slog.Int("assets", bs.assets),
		logfields.DurationMS(float64(time.Since(bs.started).Milliseconds())))
	return &Site{Pages: bs.pages, OutputDir: outputDir}, nil
}

func (p *MarkdownPipeline) clean(_ context.Context, bs *buildState) error {
	if p.opts.Clean {
		entries, err := os.ReadDir(bs.outputDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(bs.outputDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return os.MkdirAll(bs.outputDir, 0o750)
}

func (p *MarkdownPipeline) render(ctx context.Context, bs *buildState) error {
	if _, err := os.Stat(p.opts.ContentDir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "content directory unavailable").
			WithContext("path", p.opts.ContentDir).Build()
	}
	md := newMarkdown()
	caser := newTitleCaser()

	return filepath.WalkDir(p.opts.ContentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != p.opts.ContentDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(p.opts.ContentDir, path)
		if err != nil {
			return err
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			bs.assets++
			return copyFile(path, filepath.Join(bs.outputDir, rel))
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		page, html, ok, err := p.renderPage(md, caser, rel, content)
		if err != nil {
			return fmt.Errorf("render %s: %w", filepath.ToSlash(rel), err)
		}
		if !ok {
			p.opts.Logger.Debug("Skipping draft", logfields.Path(rel))
			return nil
		}
		dst := filepath.Join(bs.outputDir, filepath.FromSlash(page.Output))
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(dst, html, 0o600); err != nil {
			return err
		}
		bs.pages = append(bs.pages, page)
		return nil
	})
}

func (p *MarkdownPipeline) copyStatic(_ context.Context, bs *buildState) error {
	if p.opts.StaticDir == "" {
		return nil
	}
	if _, err := os.Stat(p.opts.StaticDir); os.IsNotExist(err) {
		p.opts.Logger.Debug("No static directory", logfields.Path(p.opts.StaticDir))
		return nil
	}
	dstRoot := filepath.Join(bs.outputDir, StaticPrefix)
	return filepath.WalkDir(p.opts.StaticDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.opts.StaticDir, path)
		if err != nil {
			return err
		}
		bs.assets++
		return copyFile(path, filepath.Join(dstRoot, rel))
	})
}

func (p *MarkdownPipeline) manifest(ctx context.Context, bs *buildState) error {
	m := Manifest{GeneratedAt: time.Now().UTC(), Pages: bs.pages, Assets: bs.assets}
	if p.opts.Revision != nil {
		if rev, err := p.opts.Revision(ctx); err == nil {
			m.Revision = rev
		}
	}
	return writeManifest(bs.outputDir, m)
}

func (p *MarkdownPipeline) inject(ctx context.Context, bs *buildState) error {
	report, err := p.opts.Injector.InjectOutput(ctx, bs.outputDir)
	if err != nil {
		return err
	}
	p.opts.Logger.Debug("Injected critical CSS", slog.Int("processed", report.Processed), slog.Int("skipped", report.Skipped))
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
