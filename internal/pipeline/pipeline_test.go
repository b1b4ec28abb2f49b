package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/criticalcss"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func TestMarkdownPipeline_Build(t *testing.T) {
	content := t.TempDir()
	static := t.TempDir()
	out := filepath.Join(t.TempDir(), "public")
	writeFiles(t, content, map[string]string{
		"index.md":                 "# Welcome\n\nHello *world*.",
		"posts/index.md":           "---\ntitle: All Posts\n---\nlist",
		"posts/getting-started.md": "Body text",
		"posts/wip.md":             "---\ndraft: true\n---\nsecret",
		"posts/images/diagram.png": "png",
		".obsidian/workspace.json": "{}",
	})
	writeFiles(t, static, map[string]string{"index.css": "body{}"})

	p := New(Options{
		ContentDir:    content,
		StaticDir:     static,
		SiteTitle:     "The Margin",
		Stylesheets:   []string{"/static/index.css"},
		ReloadSnippet: "<script>/*reload*/</script>",
		Revision:      func(context.Context) (string, error) { return "deadbeef", nil },
	})

	artifact, err := p.Build(context.Background(), out)
	require.NoError(t, err)
	site, ok := artifact.(*Site)
	require.True(t, ok)
	assert.Len(t, site.Pages, 3)

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "<em>world</em>")
	assert.Contains(t, string(home), "<title>Home | The Margin</title>")
	assert.Contains(t, string(home), "/*reload*/")

	gs, err := os.ReadFile(filepath.Join(out, "posts", "getting-started.html"))
	require.NoError(t, err)
	assert.Contains(t, string(gs), "<title>Getting Started | The Margin</title>")

	idx, err := os.ReadFile(filepath.Join(out, "posts", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(idx), "All Posts")

	assert.NoFileExists(t, filepath.Join(out, "posts", "wip.html"))
	assert.FileExists(t, filepath.Join(out, "posts", "images", "diagram.png"))
	assert.FileExists(t, filepath.Join(out, "static", "index.css"))
	assert.NoDirExists(t, filepath.Join(out, ".obsidian"))

	m, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", m.Revision)
	assert.Len(t, m.Pages, 3)
	assert.Equal(t, 2, m.Assets)
	for _, page := range m.Pages {
		assert.NotEmpty(t, page.Fingerprint, page.Source)
	}
}

func TestMarkdownPipeline_FingerprintsAreStable(t *testing.T) {
	content := t.TempDir()
	writeFiles(t, content, map[string]string{"a.md": "---\ntitle: A\n---\nsame"})
	p := New(Options{ContentDir: content})

	first, err := p.Build(context.Background(), t.TempDir())
	require.NoError(t, err)
	second, err := p.Build(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, first.(*Site).Pages[0].Fingerprint, second.(*Site).Pages[0].Fingerprint)
}

func TestMarkdownPipeline_CleanRemovesStaleOutput(t *testing.T) {
	content := t.TempDir()
	out := t.TempDir()
	writeFiles(t, content, map[string]string{"a.md": "a"})
	writeFiles(t, out, map[string]string{"stale.html": "old"})

	_, err := New(Options{ContentDir: content, Clean: true}).Build(context.Background(), out)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "stale.html"))
	assert.FileExists(t, filepath.Join(out, "a.html"))
}

func TestMarkdownPipeline_MissingContent(t *testing.T) {
	_, err := New(Options{ContentDir: filepath.Join(t.TempDir(), "nope")}).Build(context.Background(), t.TempDir())
	require.Error(t, err)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRender, se.Stage)
}

func TestMarkdownPipeline_InjectsCriticalCSS(t *testing.T) {
	content := t.TempDir()
	writeFiles(t, content, map[string]string{"index.md": "hi"})
	cache := criticalcss.NewCache(criticalcss.GeneratorFunc(func(context.Context, string) (string, error) {
		return "h1{color:red}", nil
	}), criticalcss.Options{})

	out := t.TempDir()
	_, err := New(Options{ContentDir: content, Injector: &criticalcss.Injector{Cache: cache}}).Build(context.Background(), out)
	require.NoError(t, err)

	page, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	s := string(page)
	assert.Contains(t, s, `<style id="critical-css">h1{color:red}</style>`)
	assert.Less(t, strings.Index(s, "<meta"), strings.Index(s, "critical-css"))
}

func TestMarkdownPipeline_CSSFailureFailsBuild(t *testing.T) {
	content := t.TempDir()
	writeFiles(t, content, map[string]string{"index.md": "hi"})
	cache := criticalcss.NewCache(criticalcss.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("chrome missing")
	}), criticalcss.Options{Sleep: func(context.Context, time.Duration) error { return nil }})

	_, err := New(Options{ContentDir: content, Injector: &criticalcss.Injector{Cache: cache}}).Build(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCriticalCSS))
}

func TestMarkdownPipeline_IsABuildPipeline(t *testing.T) {
	var _ build.Pipeline = New(Options{})
}

func TestOutputPath(t *testing.T) {
	tests := []struct{ rel, base, file, url string }{
		{"index.md", "", "index.html", "/"},
		{"posts/index.md", "", "posts/index.html", "/posts/"},
		{"about.md", "/site", "about.html", "/site/about"},
	}
	for _, tt := range tests {
		file, url := outputPath(tt.rel, tt.base)
		assert.Equal(t, tt.file, file)
		assert.Equal(t, tt.url, url)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	fm, body, err := splitFrontmatter([]byte("---\ntitle: X\n---\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "title: X\n", string(fm))
	assert.Equal(t, "body", string(body))

	fm, body, err = splitFrontmatter([]byte("plain"))
	require.NoError(t, err)
	assert.Nil(t, fm)
	assert.Equal(t, "plain", string(body))

	_, _, err = splitFrontmatter([]byte("---\ntitle: X\nbody"))
	require.Error(t, err)
}

func TestSiteDispose(t *testing.T) {
	s := &Site{Pages: []Page{{Source: "a.md"}}}
	require.NoError(t, s.Dispose(context.Background()))
	assert.True(t, s.Disposed())
	assert.Nil(t, s.Pages)
}
