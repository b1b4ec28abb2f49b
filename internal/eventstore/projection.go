package eventstore

import (
	"time"

	"git.home.luguber.info/inful/margin/internal/build"
)

// Status values of a BuildSummary.
const (
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusSuperseded = "superseded"
)

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID   string        `json:"build_id"`
	Status    string        `json:"status"`
	Epoch     build.Epoch   `json:"epoch"`
	Revision  string        `json:"revision,omitempty"`
	Version   uint64        `json:"version,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Summarize folds events into one summary per build, newest first.
func Summarize(events []build.Event) []BuildSummary {
	byID := make(map[string]*BuildSummary)
	var order []string
	for _, ev := range events {
		if ev.BuildID == "" {
			continue
		}
		s, ok := byID[ev.BuildID]
		if !ok {
			s = &BuildSummary{BuildID: ev.BuildID, Status: StatusRunning, Epoch: ev.Epoch, StartedAt: ev.At}
			byID[ev.BuildID] = s
			order = append(order, ev.BuildID)
		}
		if ev.Revision != "" {
			s.Revision = ev.Revision
		}
		switch ev.Type {
		case build.EventStarted:
			s.StartedAt = ev.At
		case build.EventSucceeded:
			s.Status = StatusSucceeded
			s.Version = ev.Version
			s.Duration = ev.Duration
		case build.EventFailed:
			s.Status = StatusFailed
			s.Duration = ev.Duration
			s.Error = ev.Error
		case build.EventSuperseded:
			s.Status = StatusSuperseded
			s.Duration = ev.Duration
		}
	}

	out := make([]BuildSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *byID[order[i]])
	}
	return out
}
