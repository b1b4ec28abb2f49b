package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyEpoch      = "epoch"
	KeyVersion    = "version"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyOutput     = "output"
	KeyError      = "error"
	KeyStage      = "stage"
	KeyTraceID    = "trace_id"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Epoch(e int64) slog.Attr         { return slog.Int64(KeyEpoch, e) }
func Version(v uint64) slog.Attr      { return slog.Uint64(KeyVersion, v) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func TraceID(id string) slog.Attr     { return slog.String(KeyTraceID, id) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
