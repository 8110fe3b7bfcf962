// Package app wires all Talkgate subsystems into a running daemon.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the capture loop and the ops HTTP server, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithJournal, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/talkgate/internal/config"
	"github.com/MrWong99/talkgate/internal/episodes"
	"github.com/MrWong99/talkgate/internal/health"
	"github.com/MrWong99/talkgate/internal/observe"
	"github.com/MrWong99/talkgate/pkg/activation"
	"github.com/MrWong99/talkgate/pkg/audio"
)

// finalizeTimeout bounds policy teardown after the capture loop exits, so a
// wedged transport cannot hold up process shutdown.
const finalizeTimeout = 5 * time.Second

// Providers holds the pluggable pieces main.go builds via the config
// registry: the capture source and the fully constructed activation policy.
type Providers struct {
	Source audio.Source
	Policy activation.Policy
}

// App owns all subsystem lifetimes and runs the Talkgate capture pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	journal  episodes.Store
	metrics  *observe.Metrics
	stats    *SinkStats
	pipeline *health.Pipeline

	// Episode bookkeeping. Mutated only from the capture loop goroutine,
	// where the policy fires its event callback.
	episodeStart  time.Time
	episodeFrames int64
	episodeBytes  int64

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithJournal injects an episode journal instead of creating one from config.
func WithJournal(s episodes.Store) Option {
	return func(a *App) { a.journal = s }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithSinkStats injects the stats accumulator shared with the instrumented
// transport client, so episode records carry frame and byte counts.
func WithSinkStats(s *SinkStats) Option {
	return func(a *App) { a.stats = s }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		pipeline:  &health.Pipeline{},
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.stats == nil {
		a.stats = &SinkStats{}
	}

	if err := a.initJournal(ctx); err != nil {
		return nil, fmt.Errorf("app: init journal: %w", err)
	}

	return a, nil
}

// initJournal sets up the episode journal: PostgreSQL when a DSN is
// configured, an in-memory ring otherwise.
func (a *App) initJournal(ctx context.Context) error {
	if a.journal != nil {
		return nil // injected
	}

	if dsn := a.cfg.Episodes.PostgresDSN; dsn != "" {
		store, err := episodes.NewPostgresStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.journal = store
		a.closers = append(a.closers, store.Close)
		slog.Info("episode journal backed by PostgreSQL")
		return nil
	}

	a.journal = episodes.NewMemStore(0)
	slog.Info("episode journal kept in memory")
	return nil
}

// SinkStats returns the stats accumulator the instrumented transport client
// should write into.
func (a *App) SinkStats() *SinkStats { return a.stats }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the ops HTTP server and the capture loop, blocking until ctx is
// cancelled, the capture source drains, or either component fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := a.opsServer(addr)
		g.Go(func() error {
			slog.Info("ops server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("app: ops server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.captureLoop(gctx)
	})

	return g.Wait()
}

// opsServer builds the ops HTTP server: health probes, Prometheus metrics,
// and recent episode history, all behind the observability middleware.
func (a *App) opsServer(addr string) *http.Server {
	checkers := []health.Checker{a.pipeline.Checker()}
	if pg, ok := a.journal.(*episodes.PostgresStore); ok {
		checkers = append(checkers, health.Checker{Name: "episodes", Check: pg.Ping})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /episodes", a.handleEpisodes)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// handleEpisodes serves the most recent closed episodes as JSON.
func (a *App) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	recent, err := a.journal.Recent(r.Context(), 50)
	if err != nil {
		slog.Warn("failed to read episode journal", "err", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	writeEpisodesJSON(w, recent)
}

// episodeJSON is the wire shape for /episodes entries.
type episodeJSON struct {
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Duration  string    `json:"duration"`
	Frames    int64     `json:"frames"`
	Bytes     int64     `json:"bytes"`
}

func writeEpisodesJSON(w http.ResponseWriter, eps []episodes.Episode) {
	out := make([]episodeJSON, len(eps))
	for i, e := range eps {
		out[i] = episodeJSON{
			Mode:      e.Mode,
			StartedAt: e.StartedAt,
			EndedAt:   e.EndedAt,
			Duration:  e.Duration().String(),
			Frames:    e.Frames,
			Bytes:     e.Bytes,
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Warn("failed to encode episodes", "err", err)
	}
}

// ─── Capture loop ────────────────────────────────────────────────────────────

// captureLoop is the single goroutine that owns the activation policy. It
// serialises everything the policy sees: capture chunks, source errors, and
// the policy's own trigger queue. Because no other goroutine touches the
// policy, the policy implementations need no internal locking.
func (a *App) captureLoop(ctx context.Context) error {
	policy := a.providers.Policy
	policy.OnEvent(func(e activation.Event) { a.handleEvent(ctx, e) })

	chunks, errs := a.providers.Source.Start(ctx)

	// On any exit path, release the producer: a source blocked mid-send
	// cannot observe cancellation until someone reads its channels.
	defer func(chunks <-chan audio.Chunk, errs <-chan error) {
		go audio.Drain(chunks)
		go audio.Drain(errs)
	}(chunks, errs)

	a.pipeline.SetRunning(true)
	defer a.pipeline.SetRunning(false)
	defer a.finalizePolicy(ctx)

	// VoiceActivity implements ChunkObserver to feed its classifier; the
	// other policies do not.
	observer, _ := policy.(activation.ChunkObserver)

	slog.Info("capture pipeline running", "mode", a.cfg.Activation.Mode)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case trig := <-policy.Triggers():
			if err := policy.HandleTrigger(ctx, trig); err != nil {
				slog.Error("trigger handling failed", "trigger", trig.Type, "err", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("app: capture source: %w", err)
			}

		case chunk, ok := <-chunks:
			if !ok {
				// The source may have parked a terminal error before
				// closing its channels.
				if errs != nil {
					if err := <-errs; err != nil {
						return fmt.Errorf("app: capture source: %w", err)
					}
				}
				slog.Info("capture source drained")
				return nil
			}
			if observer != nil {
				observer.Observe(chunk)
			}
			action, err := policy.Accept(ctx, chunk)
			a.metrics.RecordChunk(ctx, action.String())
			if err != nil {
				// A failed write loses this chunk's audio but the pipeline
				// keeps running; the transport may recover on the next
				// episode.
				slog.Error("chunk processing failed", "action", action, "err", err)
			}
		}
	}
}

// finalizePolicy tears the policy down with a bounded deadline, closing any
// open episode first so the stopped-talking notification still fires.
func (a *App) finalizePolicy(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), finalizeTimeout)
	defer cancel()
	if err := a.providers.Policy.Finalize(ctx); err != nil {
		slog.Warn("policy finalization failed", "err", err)
	}
}

// handleEvent reacts to activation notifications. It runs on the capture
// loop goroutine, so episode bookkeeping needs no locking.
func (a *App) handleEvent(ctx context.Context, e activation.Event) {
	switch e.Type {
	case activation.EventStartedTalking:
		a.episodeStart = time.Now()
		a.episodeFrames = a.stats.Frames()
		a.episodeBytes = a.stats.Bytes()
		a.metrics.OpenEpisodes.Add(ctx, 1)
		slog.Info("started talking")

	case activation.EventStoppedTalking:
		now := time.Now()
		ep := episodes.Episode{
			Mode:      string(a.cfg.Activation.Mode),
			StartedAt: a.episodeStart,
			EndedAt:   now,
			Frames:    a.stats.Frames() - a.episodeFrames,
			Bytes:     a.stats.Bytes() - a.episodeBytes,
		}
		a.metrics.OpenEpisodes.Add(ctx, -1)
		a.metrics.EpisodeDuration.Record(ctx, ep.Duration().Seconds())
		if err := a.journal.Record(ctx, ep); err != nil {
			slog.Warn("failed to record episode", "err", err)
		}
		slog.Info("stopped talking",
			"duration", ep.Duration(), "frames", ep.Frames, "bytes", ep.Bytes)

	case activation.EventLevel:
		slog.Debug("voice level", "level", e.Level)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
