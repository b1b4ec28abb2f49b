// Package criticalcss computes, caches and injects the critical stylesheet
// embedded into every emitted page.
//
// Cache.Ensure runs the external generator with bounded retries and stores
// the generated CSS followed by the supplementary stylesheet. The cache stays
// valid until Invalidate is called, typically by the change watcher after a
// stylesheet edit. Injector rewrites the <head> of emitted HTML files.
package criticalcss
