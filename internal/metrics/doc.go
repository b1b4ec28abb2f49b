// Package metrics provides observability hooks for builds, critical CSS
// generation, the dev server and live reload.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics stay optional:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	coordinator := build.NewCoordinator(pipeline, build.Options{Recorder: recorder})
//
// HTTPHandler exposes a registry for scraping.
package metrics
