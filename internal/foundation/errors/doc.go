// Package errors provides the classified error type used across margin.
//
// A ClassifiedError carries a category, a severity and a retry strategy next to
// the message and the wrapped cause, so callers can decide whether a failure is
// fatal for the process, fatal for a single build, or only worth a warning.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryPipeline, "content pipeline failed").
//		Fatal().
//		WithContext("config", configPath).
//		Build()
package errors
