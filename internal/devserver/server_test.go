package devserver

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/margin/internal/build"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouting_LiteralScenarios(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		base     string
		target   string
		status   int
		body     string
		location string
	}{
		{
			name:   "trailing slash serves index",
			files:  map[string]string{"posts/index.html": "posts index"},
			target: "/posts/",
			status: http.StatusOK,
			body:   "posts index",
		},
		{
			name:     "trailing slash redirects to html sibling",
			files:    map[string]string{"posts.html": "posts page"},
			target:   "/posts/",
			status:   http.StatusFound,
			location: "/posts",
		},
		{
			name:   "clean path serves html",
			files:  map[string]string{"about.html": "about page"},
			target: "/about",
			status: http.StatusOK,
			body:   "about page",
		},
		{
			name:     "clean path redirects to directory",
			files:    map[string]string{"about/index.html": "about dir"},
			target:   "/about",
			status:   http.StatusFound,
			location: "/about/",
		},
		{
			name:   "outside base dir",
			files:  map[string]string{"index.html": "home"},
			base:   "/site",
			target: "/blog",
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := writeTree(t, tt.files)
			srv := New(Options{OutputDir: out, BaseDir: tt.base})

			rec := do(t, srv, tt.target)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRouting_BaseDir(t *testing.T) {
	out := writeTree(t, map[string]string{
		"index.html":       "home",
		"about/index.html": "about",
		"notes.html":       "notes",
	})
	srv := New(Options{OutputDir: out, BaseDir: "/site"})

	rec := do(t, srv, "/site/about")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/site/about/", rec.Header().Get("Location"))

	rec = do(t, srv, "/site/notes?ref=nav")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "notes", rec.Body.String())

	rec = do(t, srv, "/site")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/site/", rec.Header().Get("Location"))

	rec = do(t, srv, "/site/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", rec.Body.String())

	rec = do(t, srv, "/sitemap.xml")
	assert.Equal(t, http.StatusNotFound, rec.Code, "prefix match must respect path segments")
}

func TestFallthrough_InlineAndNoListing(t *testing.T) {
	out := writeTree(t, map[string]string{
		"static/app.js":      "console.log(1)",
		"assets/logo.txt":    "logo",
		"nolisting/a/b.json": "{}",
	})
	srv := New(Options{OutputDir: out})

	rec := do(t, srv, "/static/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = do(t, srv, "/nolisting/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "a/")

	rec = do(t, srv, "/missing.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFile_InlineHeader(t *testing.T) {
	out := writeTree(t, map[string]string{"about.html": "<p>about</p>"})
	rec := do(t, New(Options{OutputDir: out}), "/about")
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestResolve_DoesNotEscapeOutput(t *testing.T) {
	parent := t.TempDir()
	out := filepath.Join(parent, "public")
	require.NoError(t, os.MkdirAll(out, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.html"), []byte("x"), 0o600))

	d := Resolve(out, "/../secret")
	assert.Equal(t, Fallthrough, d.Action)
}

func TestRequestsQueueBehindBuild(t *testing.T) {
	out := writeTree(t, map[string]string{"about.html": "about"})
	lock := build.NewLock()
	srv := New(Options{OutputDir: out, Lock: lock})

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(t, srv, "/about") }()

	select {
	case <-done:
		t.Fatal("request served while the build lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case rec := <-done:
		assert.Equal(t, http.StatusOK, rec.Code)
	case <-time.After(time.Second):
		t.Fatal("request did not complete after the lock was released")
	}
}

func TestRedirectsDoNotWaitForLock(t *testing.T) {
	out := writeTree(t, map[string]string{"posts.html": "posts"})
	lock := build.NewLock()
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	rec := do(t, New(Options{OutputDir: out, Lock: lock}), "/posts/")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestConsoleLog(t *testing.T) {
	out := writeTree(t, map[string]string{"about.html": "about", "posts.html": "posts"})
	var buf bytes.Buffer
	srv := New(Options{OutputDir: out, Console: &buf})

	do(t, srv, "/about")
	do(t, srv, "/posts/")
	do(t, srv, "/nope")

	log := buf.String()
	assert.Contains(t, log, "[200]")
	assert.Contains(t, log, "/about")
	assert.Contains(t, log, "/posts/ -> /posts")
	assert.Contains(t, log, "[404]")
}

func TestHandler_RecoversPanics(t *testing.T) {
	srv := New(Options{OutputDir: t.TempDir()})
	srv.static = http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := do(t, srv.Handler(), "/x.css")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCheckPortAvailability(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	err = CheckPortAvailability(context.Background(), port)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	hint, _ := ce.Context().GetString("hint")
	assert.Contains(t, hint, "lsof -ti:")

	require.NoError(t, ln.Close())
	require.NoError(t, CheckPortAvailability(context.Background(), port))
}

func TestServer_OverHTTP(t *testing.T) {
	out := writeTree(t, map[string]string{"index.html": "home"})
	ts := httptest.NewServer(New(Options{OutputDir: out}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "home", string(body))
}
