// Package eventstore persists build lifecycle events to SQLite and folds them
// into per-build summaries for the history command.
package eventstore
