package metrics

import "time"

// BuildOutcomeLabel enumerates how a build request ended.
type BuildOutcomeLabel string

const (
	OutcomeSucceeded  BuildOutcomeLabel = "succeeded"
	OutcomeFailed     BuildOutcomeLabel = "failed"
	OutcomeSuperseded BuildOutcomeLabel = "superseded"
)

// Recorder defines observability hooks. Implementations may forward to
// Prometheus or anything else; NoopRecorder is the default.
type Recorder interface {
	IncBuildOutcome(outcome BuildOutcomeLabel)
	ObserveBuildDuration(d time.Duration)
	IncCriticalCSSAttempt(success bool)
	IncCriticalCSSCacheHit()
	IncHTTPResponse(status int)
	IncLiveReloadConnection()
	IncLiveReloadBroadcast()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)  {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncCriticalCSSAttempt(bool)         {}
func (NoopRecorder) IncCriticalCSSCacheHit()            {}
func (NoopRecorder) IncHTTPResponse(int)                {}
func (NoopRecorder) IncLiveReloadConnection()           {}
func (NoopRecorder) IncLiveReloadBroadcast()            {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// StatusClass buckets an HTTP status code into "2xx", "3xx" and so on.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
