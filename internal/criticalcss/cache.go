package criticalcss

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
	"git.home.luguber.info/inful/margin/internal/logfields"
	"git.home.luguber.info/inful/margin/internal/metrics"
	"git.home.luguber.info/inful/margin/internal/retry"
)

// Generator produces the critical CSS for a built output directory.
type Generator interface {
	Generate(ctx context.Context, outputDir string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, outputDir string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, outputDir string) (string, error) {
	return f(ctx, outputDir)
}

// Options tunes a Cache.
type Options struct {
	Policy retry.Policy
	Sleep  retry.Sleeper
	// Supplement is appended to every generated stylesheet. Nil appends nothing.
	Supplement *Supplement
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// Cache memoizes the critical CSS. The empty string means "not computed".
type Cache struct {
	gen  Generator
	opts Options

	ensureMu sync.Mutex // serializes computations

	mu         sync.RWMutex
	css        string
	generation uint64 // bumped on Invalidate and Set
}

// NewCache returns an empty cache around gen.
func NewCache(gen Generator, opts Options) *Cache {
	if opts.Policy == (retry.Policy{}) {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.ContextSleep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Recorder = metrics.OrNoop(opts.Recorder)
	return &Cache{gen: gen, opts: opts}
}

// Get returns the cached CSS, or "" when invalid.
func (c *Cache) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.css
}

// Valid reports whether a computed value is cached.
func (c *Cache) Valid() bool { return c.Get() != "" }

// Set stores css as the cached value. Setting "" invalidates.
func (c *Cache) Set(css string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.css = css
	c.generation++
}

// Invalidate resets the cache so the next Ensure recomputes.
func (c *Cache) Invalidate() {
	c.Set("")
}

// Ensure returns the cached CSS, computing it first when invalid. A result
// computed while the cache was invalidated concurrently is returned but not
// stored.
func (c *Cache) Ensure(ctx context.Context, outputDir string) (string, error) {
	if css := c.Get(); css != "" {
		c.opts.Recorder.IncCriticalCSSCacheHit()
		return css, nil
	}

	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()

	c.mu.RLock()
	css, gen := c.css, c.generation
	c.mu.RUnlock()
	if css != "" {
		c.opts.Recorder.IncCriticalCSSCacheHit()
		return css, nil
	}

	attempts := c.opts.Policy.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.opts.Logger.Info("Retrying critical CSS generation", logfields.Attempt(attempt), slog.Int("max_attempts", attempts))
			if err := c.opts.Sleep(ctx, c.opts.Policy.Delay(attempt-1)); err != nil {
				return "", err
			}
		} else {
			c.opts.Logger.Info("Computing and caching critical CSS")
		}

		result, err := c.attempt(ctx, outputDir)
		if err != nil {
			lastErr = err
			c.opts.Recorder.IncCriticalCSSAttempt(false)
			c.opts.Logger.Error("Error generating critical CSS", logfields.Attempt(attempt), slog.Int("max_attempts", attempts), logfields.Error(err))
			c.resetIf(gen)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			continue
		}

		c.opts.Recorder.IncCriticalCSSAttempt(true)
		if !c.storeIf(gen, result) {
			c.opts.Logger.Debug("Critical CSS invalidated during generation; result not cached")
		} else {
			c.opts.Logger.Info("Cached critical CSS with supplementary styles")
		}
		return result, nil
	}
	return "", ferrors.CSSGenerationFailed(attempts, lastErr)
}

func (c *Cache) attempt(ctx context.Context, outputDir string) (string, error) {
	css, err := c.gen.Generate(ctx, outputDir)
	if err != nil {
		return "", err
	}
	if css == "" {
		return "", errEmptyCSS
	}
	if c.opts.Supplement == nil {
		return css, nil
	}
	extra, err := c.opts.Supplement.Render()
	if err != nil {
		return "", err
	}
	return css + extra, nil
}

var errEmptyCSS = errors.New("generator returned no CSS")

func (c *Cache) storeIf(gen uint64, css string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.css = css
	return true
}

func (c *Cache) resetIf(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.css = ""
	}
}
