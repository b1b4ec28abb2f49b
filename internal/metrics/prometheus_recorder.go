package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "margin"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildOutcome  *prom.CounterVec
	buildDuration prom.Histogram
	cssAttempts   *prom.CounterVec
	cssCacheHits  prom.Counter
	httpResponses *prom.CounterVec
	lrConnections prom.Counter
	lrBroadcasts  prom.Counter
}

// NewPrometheusRecorder constructs and registers the metrics on reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build requests by outcome (succeeded, failed, superseded)",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of the locked section of a build",
			Buckets:   prom.DefBuckets,
		}),
		cssAttempts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "critical_css_attempts_total",
			Help:      "Critical CSS generation attempts by result",
		}, []string{"result"}),
		cssCacheHits: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "critical_css_cache_hits_total",
			Help:      "Ensure calls answered from the cached critical CSS",
		}),
		httpResponses: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "Dev server responses by status class",
		}, []string{"class"}),
		lrConnections: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_connections_total",
			Help:      "Accepted live reload connections",
		}),
		lrBroadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Rebuild notifications broadcast to clients",
		}),
	}
	reg.MustRegister(pr.buildOutcome, pr.buildDuration, pr.cssAttempts, pr.cssCacheHits, pr.httpResponses, pr.lrConnections, pr.lrBroadcasts)
	return pr
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCriticalCSSAttempt(success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.cssAttempts.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncCriticalCSSCacheHit() { p.cssCacheHits.Inc() }

func (p *PrometheusRecorder) IncHTTPResponse(status int) {
	p.httpResponses.WithLabelValues(StatusClass(status)).Inc()
}

func (p *PrometheusRecorder) IncLiveReloadConnection() { p.lrConnections.Inc() }

func (p *PrometheusRecorder) IncLiveReloadBroadcast() { p.lrBroadcasts.Inc() }
