// Package watch turns filesystem notifications into rebuild requests.
package watch

import (
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/margin/internal/config"
)

// Category is what a changed path means for the build.
type Category int

const (
	Ignored Category = iota
	Source
	Stylesheet
)

func (c Category) String() string {
	switch c {
	case Source:
		return "source"
	case Stylesheet:
		return "stylesheet"
	default:
		return "ignored"
	}
}

// Classifier maps paths to categories by extension, after the ignore rules.
type Classifier struct {
	extensions     map[string]bool
	stylesheets    map[string]bool
	ignoreDirs     map[string]bool
	ignoreSuffixes []string
	ignorePaths    []string
}

// NewClassifier builds a classifier from the watch configuration. Paths under
// any of ignorePaths are always ignored.
func NewClassifier(cfg config.WatchConfig, ignorePaths ...string) Classifier {
	c := Classifier{
		extensions:     map[string]bool{},
		stylesheets:    map[string]bool{},
		ignoreDirs:     map[string]bool{},
		ignoreSuffixes: slices.Clone(cfg.IgnoreSuffixes),
	}
	for _, e := range cfg.Extensions {
		c.extensions[strings.ToLower(e)] = true
	}
	for _, e := range cfg.StylesheetExtensions {
		c.stylesheets[strings.ToLower(e)] = true
	}
	for _, d := range cfg.IgnoreDirs {
		c.ignoreDirs[d] = true
	}
	for _, p := range ignorePaths {
		if abs, err := filepath.Abs(p); err == nil {
			c.ignorePaths = append(c.ignorePaths, abs)
		}
	}
	return c
}

// Classify decides what a change to path means.
func (c Classifier) Classify(path string) Category {
	if shouldIgnoreEvent(path) || c.ignoredDir(path) || c.ignoredPath(path) {
		return Ignored
	}
	base := filepath.Base(path)
	for _, s := range c.ignoreSuffixes {
		if strings.HasSuffix(base, s) {
			return Ignored
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	switch {
	case c.stylesheets[ext]:
		return Stylesheet
	case c.extensions[ext]:
		return Source
	default:
		return Ignored
	}
}

// IgnoresDir reports whether a directory should not be watched at all.
func (c Classifier) IgnoresDir(path string) bool {
	base := filepath.Base(path)
	return c.ignoreDirs[base] || (strings.HasPrefix(base, ".") && base != "." && base != "..") || c.ignoredPath(path)
}

func (c Classifier) ignoredDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if c.ignoreDirs[part] {
			return true
		}
	}
	return false
}

func (c Classifier) ignoredPath(path string) bool {
	if len(c.ignorePaths) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, p := range c.ignorePaths {
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent returns true for hidden, editor temp and lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
