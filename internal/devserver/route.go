package devserver

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Action is the kind of a routing Decision.
type Action int

const (
	Fallthrough Action = iota
	ServeFile
	Redirect
)

func (a Action) String() string {
	switch a {
	case ServeFile:
		return "serve"
	case Redirect:
		return "redirect"
	default:
		return "fallthrough"
	}
}

// Decision is the outcome of resolving one request path.
type Decision struct {
	Action Action
	// File is the slash separated path, relative to the output root, served
	// for ServeFile.
	File string
	// Location is the redirect target without the base dir.
	Location string
}

// Resolve decides how to answer a request for urlPath, which must already be
// stripped of the base dir and of any query string.
func Resolve(outputDir, urlPath string) Decision {
	if strings.HasSuffix(urlPath, "/") {
		if index := urlPath + "index.html"; exists(outputDir, index) {
			return Decision{Action: ServeFile, File: index}
		}
		base := strings.TrimSuffix(urlPath, "/")
		candidate := base
		if path.Ext(candidate) == "" {
			candidate += ".html"
		}
		if base != "" && exists(outputDir, candidate) {
			return Decision{Action: Redirect, Location: base}
		}
		return Decision{Action: Fallthrough}
	}

	candidate := urlPath
	if path.Ext(candidate) == "" {
		candidate += ".html"
	}
	if exists(outputDir, candidate) {
		return Decision{Action: ServeFile, File: candidate}
	}
	if exists(outputDir, urlPath+"/index.html") {
		return Decision{Action: Redirect, Location: urlPath + "/"}
	}
	return Decision{Action: Fallthrough}
}

// exists reports whether urlPath names a regular file inside outputDir.
func exists(outputDir, urlPath string) bool {
	fi, err := os.Stat(localPath(outputDir, urlPath))
	return err == nil && fi.Mode().IsRegular()
}

// localPath maps a URL path onto outputDir without escaping it.
func localPath(outputDir, urlPath string) string {
	return filepath.Join(outputDir, filepath.FromSlash(path.Clean("/"+urlPath)))
}
