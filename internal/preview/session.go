package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/config"
	"git.home.luguber.info/inful/margin/internal/criticalcss"
	"git.home.luguber.info/inful/margin/internal/devserver"
	"git.home.luguber.info/inful/margin/internal/eventstore"
	"git.home.luguber.info/inful/margin/internal/git"
	"git.home.luguber.info/inful/margin/internal/livereload"
	"git.home.luguber.info/inful/margin/internal/logfields"
	"git.home.luguber.info/inful/margin/internal/metrics"
	"git.home.luguber.info/inful/margin/internal/notify"
	"git.home.luguber.info/inful/margin/internal/pipeline"
	"git.home.luguber.info/inful/margin/internal/retry"
	"git.home.luguber.info/inful/margin/internal/scheduler"
	"git.home.luguber.info/inful/margin/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// Options tunes a Session beyond what the configuration carries.
type Options struct {
	Logger *slog.Logger
	// Console receives the banner and the request log. Defaults to stdout.
	Console io.Writer
}

// Addrs are the ports a serving session is bound to.
type Addrs struct {
	HTTP    int
	WS      int
	Metrics int
}

// Session runs one build, or one serving lifetime, for a configuration.
// The configuration must already be normalized and validated.
type Session struct {
	cfg     *config.Config
	logger  *slog.Logger
	console io.Writer

	registry *prom.Registry
	recorder metrics.Recorder

	closers []func() error

	ready chan struct{}
	addrs Addrs
}

// New creates a session for cfg.
func New(cfg *config.Config, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	reg := prom.NewRegistry()
	return &Session{
		cfg:      cfg,
		logger:   opts.Logger,
		console:  opts.Console,
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once a serving session accepts connections.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Addrs returns the bound ports. Valid after Ready is closed.
func (s *Session) Addrs() Addrs { return s.addrs }

// Run executes the session. Build-only sessions return the build error.
// Serving sessions return when ctx is done or a listener fails.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()
	if s.cfg.Build.Serve {
		return s.serve(ctx)
	}
	return s.buildOnce(ctx)
}

func (s *Session) buildOnce(ctx context.Context) error {
	coord, _, err := s.coordinator(nil, 0)
	if err != nil {
		return err
	}
	if _, err := coord.Run(ctx); err != nil {
		return err
	}
	if _, err := coord.Registry().Teardown(ctx); err != nil {
		s.logger.Warn("Failed to dispose build", logfields.Error(err))
	}
	return nil
}

func (s *Session) serve(ctx context.Context) error {
	listeners, err := s.bind(ctx)
	if err != nil {
		return err
	}

	hub := livereload.NewHub(s.recorder, s.logger)
	defer hub.Close()
	coord, cache, err := s.coordinator(hub, s.addrs.WS)
	if err != nil {
		closeAll(listeners)
		return err
	}

	if _, err := coord.Run(ctx); err != nil {
		s.logger.Error("Initial build failed; serving previous output", logfields.Error(err))
	}

	servers := []*http.Server{
		newServer(devserver.New(devserver.Options{
			OutputDir: s.cfg.Output.Directory,
			BaseDir:   s.cfg.Server.BaseDir,
			Lock:      coord.Lock(),
			Recorder:  s.recorder,
			Logger:    s.logger,
			Console:   s.console,
		}).Handler()),
		newServer(livereload.Handler(hub, s.addrs.WS)),
	}
	if len(listeners) > 2 {
		servers = append(servers, newServer(s.metricsHandler()))
	}

	errCh := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, listeners[i])
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	w, err := s.watcher(coord, cache)
	if err != nil {
		s.logger.Warn("File watching disabled", logfields.Error(err))
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(runCtx)
		}()
	}

	sched, err := s.scheduler(runCtx, coord)
	if err != nil {
		s.logger.Warn("Scheduled rebuilds disabled", logfields.Error(err))
	}

	printBanner(s.console, s.addrs, s.cfg.Server.BaseDir)
	close(s.ready)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		s.logger.Error("Listener failed", logfields.Error(serveErr))
	}

	s.logger.Info("Shutting down dev server...")
	cancel()
	if w != nil {
		_ = w.Close()
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			s.logger.Warn("Scheduler shutdown error", logfields.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
		}
	}
	wg.Wait()

	if _, err := coord.Registry().Teardown(shutdownCtx); err != nil {
		s.logger.Warn("Failed to dispose build", logfields.Error(err))
	}
	return serveErr
}

// bind opens every listener before any build work so a taken port fails fast.
func (s *Session) bind(ctx context.Context) ([]net.Listener, error) {
	ports := []int{s.cfg.Server.Port, s.cfg.Server.WSPort}
	if s.cfg.Server.MetricsPort != 0 {
		ports = append(ports, s.cfg.Server.MetricsPort)
	}
	listeners := make([]net.Listener, 0, len(ports))
	for _, port := range ports {
		ln, err := devserver.Listen(ctx, port)
		if err != nil {
			closeAll(listeners)
			return nil, err
		}
		listeners = append(listeners, ln)
	}
	s.addrs = Addrs{HTTP: portOf(listeners[0]), WS: portOf(listeners[1])}
	if len(listeners) > 2 {
		s.addrs.Metrics = portOf(listeners[2])
	}
	return listeners, nil
}

func (s *Session) coordinator(hub *livereload.Hub, wsPort int) (*build.Coordinator, *criticalcss.Cache, error) {
	cfg := s.cfg
	revision := git.RevisionFunc(cfg.Content.Directory)

	var observers []build.Observer
	if cfg.History.Path != "" {
		store, err := eventstore.Open(cfg.History.Path, s.logger)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, store.Close)
		observers = append(observers, store)
	}
	if cfg.Events.NATSURL != "" {
		pub, err := notify.Connect(cfg.Events.NATSURL, cfg.Events.Subject, s.logger)
		if err != nil {
			s.logger.Warn("Build events will not be published", logfields.Error(err))
		} else {
			s.closers = append(s.closers, pub.Close)
			observers = append(observers, pub)
		}
	}

	var cache *criticalcss.Cache
	var injector *criticalcss.Injector
	if cfg.CriticalCSS.Enabled {
		cache = criticalcss.NewCache(criticalcss.CommandGenerator{
			Command: cfg.CriticalCSS.Command,
			Args:    cfg.CriticalCSS.Args,
		}, criticalcss.Options{
			Policy: retry.FromConfig(cfg.CriticalCSS),
			Supplement: &criticalcss.Supplement{
				Path:          cfg.CriticalCSS.Supplementary,
				Variables:     cfg.CriticalCSS.Variables,
				VariablesFile: cfg.CriticalCSS.VariablesFile,
			},
			Recorder: s.recorder,
			Logger:   s.logger,
		})
		injector = &criticalcss.Injector{Cache: cache, Logger: s.logger}
	}

	popts := pipeline.Options{
		ContentDir:  cfg.Content.Directory,
		StaticDir:   cfg.Content.Static,
		SiteTitle:   cfg.Content.Title,
		BaseDir:     cfg.Server.BaseDir,
		Clean:       cfg.Output.Clean,
		Stylesheets: stylesheetLinks(cfg.Content.Static, cfg.Server.BaseDir),
		Injector:    injector,
		Revision:    revision,
		Logger:      s.logger,
	}
	opts := build.Options{
		OutputDir:  cfg.Output.Directory,
		ConfigPath: cfg.Path,
		Observers:  observers,
		Recorder:   s.recorder,
		Revision:   revision,
		BundleInfo: cfg.Build.BundleInfo,
		Logger:     s.logger,
	}
	if hub != nil {
		popts.ReloadSnippet = livereload.Snippet(wsPort)
		opts.Notifier = hub
	}
	return build.NewCoordinator(pipeline.New(popts), opts), cache, nil
}

func (s *Session) watcher(coord *build.Coordinator, cache *criticalcss.Cache) (*watch.Watcher, error) {
	roots := []string{s.cfg.Content.Directory}
	if s.cfg.Content.Static != "" {
		roots = append(roots, s.cfg.Content.Static)
	}
	if sup := s.cfg.CriticalCSS.Supplementary; s.cfg.CriticalCSS.Enabled && sup != "" {
		roots = append(roots, filepath.Dir(sup))
	}
	opts := watch.Options{
		Roots:      roots,
		Classifier: watch.NewClassifier(s.cfg.Watch, s.cfg.Output.Directory),
		Window:     s.cfg.Watch.BatchWindow,
		Rebuilder:  coord,
		Logger:     s.logger,
	}
	if cache != nil {
		opts.Invalidator = cache
	}
	return watch.New(opts)
}

func (s *Session) scheduler(ctx context.Context, coord *build.Coordinator) (*scheduler.Scheduler, error) {
	if s.cfg.Schedule.RebuildInterval <= 0 {
		return nil, nil
	}
	sched, err := scheduler.New(s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := sched.SchedulePeriodicBuild(s.cfg.Schedule.RebuildInterval, coord); err != nil {
		_ = sched.Stop()
		return nil, err
	}
	sched.Start(ctx)
	return sched, nil
}

func (s *Session) metricsHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.HTTPHandler(s.registry))
	return r
}

func (s *Session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("Cleanup failed", logfields.Error(err))
		}
	}
	s.closers = nil
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
}

func closeAll(listeners []net.Listener) {
	for _, ln := range listeners {
		_ = ln.Close()
	}
}

func portOf(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// stylesheetLinks links every top level .css file of the static directory.
func stylesheetLinks(staticDir, baseDir string) []string {
	if staticDir == "" {
		return nil
	}
	entries, err := os.ReadDir(staticDir)
	if err != nil {
		return nil
	}
	var links []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".css") {
			continue
		}
		links = append(links, fmt.Sprintf("%s/%s/%s", baseDir, pipeline.StaticPrefix, e.Name()))
	}
	sort.Strings(links)
	return links
}
