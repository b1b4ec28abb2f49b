package build

import (
	"context"
	"time"
)

// EventType names a step in a build's lifecycle.
type EventType string

const (
	EventStarted    EventType = "build.started"
	EventSuperseded EventType = "build.superseded"
	EventSucceeded  EventType = "build.succeeded"
	EventFailed     EventType = "build.failed"
)

// Event describes one lifecycle step of a build.
type Event struct {
	BuildID  string        `json:"build_id"`
	Type     EventType     `json:"type"`
	Epoch    Epoch         `json:"epoch"`
	Revision string        `json:"revision,omitempty"`
	Version  uint64        `json:"version,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// Observer receives every lifecycle event. Implementations must not block for
// long: they run on the build's goroutine.
type Observer interface {
	OnBuildEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// OnBuildEvent implements Observer.
func (f ObserverFunc) OnBuildEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Notifier is told about successful builds. It is invoked outside the Lock.
type Notifier interface {
	Broadcast()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

// Broadcast implements Notifier.
func (f NotifierFunc) Broadcast() { f() }

type noopNotifier struct{}

func (noopNotifier) Broadcast() {}
