package devserver

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/logfields"
	"git.home.luguber.info/inful/margin/internal/metrics"
)

// Options configures a Server.
type Options struct {
	OutputDir string
	// BaseDir is the normalized URL prefix the site lives under ("" or "/x").
	BaseDir  string
	Lock     *build.Lock
	Recorder metrics.Recorder
	Logger   *slog.Logger
	// Console receives the colored request log. Nil disables it.
	Console io.Writer
}

// Server routes requests into the output directory.
type Server struct {
	opts    Options
	static  http.Handler
	console console
}

// New returns a Server. A nil Lock gets a private one.
func New(opts Options) *Server {
	if opts.Lock == nil {
		opts.Lock = build.NewLock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Recorder = metrics.OrNoop(opts.Recorder)
	return &Server{
		opts:    opts,
		static:  staticHandler(opts.OutputDir),
		console: console{out: opts.Console},
	}
}

// Handler wraps the server with panic recovery.
func (s *Server) Handler() http.Handler {
	return middleware.Recoverer(s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	requested := r.URL.Path
	base := s.opts.BaseDir

	if base != "" && requested != base && !strings.HasPrefix(requested, base+"/") {
		s.opts.Logger.Warn("Request outside base dir", logfields.Path(requested), slog.String("base_dir", base))
		s.console.outsideBase(requested)
		rec.WriteHeader(http.StatusNotFound)
		s.opts.Recorder.IncHTTPResponse(http.StatusNotFound)
		return
	}

	rel := strings.TrimPrefix(requested, base)
	if rel == "" {
		s.redirect(rec, r, requested, base+"/")
		return
	}

	decision := Resolve(s.opts.OutputDir, rel)
	switch decision.Action {
	case Redirect:
		s.redirect(rec, r, requested, base+decision.Location)
		return
	case ServeFile:
		s.locked(rec, r, func() { serveFile(rec, r, s.opts.OutputDir, decision.File) })
	default:
		stripped := r.Clone(r.Context())
		stripped.URL.Path = rel
		stripped.URL.RawPath = ""
		s.locked(rec, r, func() { s.static.ServeHTTP(rec, stripped) })
	}

	s.console.response(rec.statusCode, requested)
	s.opts.Logger.Debug("HTTP request",
		slog.String("method", r.Method),
		logfields.Path(requested),
		logfields.Status(rec.statusCode),
		slog.String("route", decision.Action.String()),
		slog.String("file", decision.File))
	s.opts.Recorder.IncHTTPResponse(rec.statusCode)
}

func (s *Server) locked(w http.ResponseWriter, r *http.Request, serve func()) {
	release, err := s.opts.Lock.Acquire(r.Context())
	if err != nil {
		// The client went away while a build held the lock.
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer release()
	serve()
}

func (s *Server) redirect(w *responseWriter, r *http.Request, from, to string) {
	w.Header().Set("Location", to)
	w.WriteHeader(http.StatusFound)
	s.console.redirect(from, to)
	s.opts.Logger.Debug("HTTP redirect", logfields.Path(from), slog.String("location", to))
	s.opts.Recorder.IncHTTPResponse(http.StatusFound)
}

// responseWriter captures status codes for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
