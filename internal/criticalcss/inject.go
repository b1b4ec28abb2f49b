package criticalcss

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
	"git.home.luguber.info/inful/margin/internal/logfields"
	"git.home.luguber.info/inful/margin/internal/observability"
)

// Injector embeds the cached critical CSS into emitted HTML files.
type Injector struct {
	Cache  *Cache
	Logger *slog.Logger
}

// InjectReport counts what InjectFiles did.
type InjectReport struct {
	Processed int
	Skipped   int
}

// InjectOutput injects into every .html file under outputDir.
func (i *Injector) InjectOutput(ctx context.Context, outputDir string) (InjectReport, error) {
	files, err := HTMLFiles(outputDir)
	if err != nil {
		return InjectReport{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "list HTML files").
			WithContext("output", outputDir).Build()
	}
	return i.InjectFiles(ctx, outputDir, files)
}

// InjectFiles ensures the critical CSS and rewrites each file's <head>. A
// generation failure aborts before any file is touched. Per-file failures are
// logged and skipped, except a head reordering violation, which is returned.
func (i *Injector) InjectFiles(ctx context.Context, outputDir string, files []string) (InjectReport, error) {
	log := observability.Logger(ctx, i.Logger)
	css, err := i.Cache.Ensure(ctx, outputDir)
	if err != nil {
		return InjectReport{}, err
	}

	var report InjectReport
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := injectFile(file, css)
		if err == nil {
			report.Processed++
			continue
		}
		if ferrors.HasCategory(err, ferrors.CategoryHead) {
			return report, err
		}
		report.Skipped++
		warning := ferrors.FileProcessing(file, err)
		log.Warn("Could not process file", logfields.Path(file), logfields.Error(warning.Cause()))
	}
	return report, nil
}

func injectFile(path, css string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := InjectHTML(data, css)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, info.Mode().Perm())
}

// InjectHTML replaces any critical CSS <style> in page with css, appends it to
// <head> and reorders the head.
func InjectHTML(page []byte, css string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	head := findElement(doc, atom.Head)
	if head == nil {
		return nil, ferrors.NewError(ferrors.CategoryValidation, "document has no <head>").Build()
	}
	removeCriticalStyles(doc)

	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: StyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)

	if err := ReorderHead(head); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTMLFiles lists the .html files under dir.
func HTMLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".html") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
