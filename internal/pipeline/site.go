package pipeline

import (
	"context"
	"sync"
)

// Site is the artifact of a successful build: the page index of one output
// tree. Dispose drops the index once a newer build replaces it.
type Site struct {
	mu        sync.Mutex
	Pages     []Page
	OutputDir string
	disposed  bool
}

// Dispose implements build.Artifact.
func (s *Site) Dispose(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pages = nil
	s.disposed = true
	return nil
}

// Disposed reports whether Dispose has run.
func (s *Site) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
