package devserver

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// noListingFS hides directories that have no index.html, so the file server
// answers 404 instead of rendering a listing.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !st.IsDir() {
		return f, nil
	}
	index, err := n.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	_ = index.Close()
	return f, nil
}

// staticHandler serves outputDir without directory listings and marks every
// response as inline content.
func staticHandler(outputDir string) http.Handler {
	files := http.FileServer(noListingFS{fs: http.Dir(outputDir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "inline")
		files.ServeHTTP(w, r)
	})
}

// serveFile writes the file at urlPath verbatim, at the requested URL.
func serveFile(w http.ResponseWriter, r *http.Request, outputDir, urlPath string) {
	f, err := os.Open(localPath(outputDir, urlPath))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", "inline")
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}
