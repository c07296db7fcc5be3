// Package server runs the acquisition workers: a polling loop that picks up
// wanted media and drives each item through the trailer pipeline.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/events"
	"github.com/vmunix/trailgo/internal/execx"
	"github.com/vmunix/trailgo/internal/fetch"
	"github.com/vmunix/trailgo/internal/media"
	"github.com/vmunix/trailgo/internal/pipeline"
	"github.com/vmunix/trailgo/internal/place"
	"github.com/vmunix/trailgo/internal/probe"
	"github.com/vmunix/trailgo/internal/search"
	"github.com/vmunix/trailgo/internal/transcode"
)

// Acquirer runs one acquisition session. Satisfied by pipeline.Orchestrator.
type Acquirer interface {
	Acquire(ctx context.Context, item *media.Item, profile config.Profile, maxAttempts int, excluded *search.ExcludeSet) (pipeline.Outcome, error)
}

// Runner polls the registry for wanted items and feeds them to a bounded
// pool of acquisition workers.
type Runner struct {
	cfg     *config.Config
	store   *media.Store
	bus     *events.Bus
	acquire Acquirer
	log     *slog.Logger
}

// NewRunner wires the full pipeline against the given database. All external
// tools run through a real process runner.
func NewRunner(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	store := media.NewStore(db)
	bus := events.NewBus(events.NewEventLog(db), logger.With("component", "bus"))

	runner := execx.ExecRunner{}
	orch := pipeline.New(pipeline.Deps{
		Resolver:   search.NewResolver(runner, cfg, logger),
		Fetcher:    fetch.NewFetcher(runner, cfg, logger),
		Transcoder: transcode.NewTranscoder(runner, cfg, logger),
		Verifier:   probe.NewVerifier(runner, cfg, logger),
		Placer:     place.NewPlacer(logger),
		Status:     store,
		Sources:    store,
		Bus:        bus,
		Log:        logger,
	}, cfg)

	return &Runner{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		acquire: orch,
		log:     logger.With("component", "server"),
	}
}

// AcquireOne runs a single acquisition session for the item with the given
// ID. Used by the one-shot CLI path; the polling loop never calls it.
func (r *Runner) AcquireOne(ctx context.Context, id int64, maxAttempts int) (pipeline.Outcome, error) {
	item, err := r.store.Get(id)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	profile, err := r.cfg.Profile(item.Profile)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	return r.acquire.Acquire(ctx, item, profile, maxAttempts, nil)
}

// Close shuts down the event bus. Callers that never invoke Run use this
// to release subscribers; Run closes the bus itself.
func (r *Runner) Close() {
	r.bus.Close()
}

// Run blocks until the context is canceled. A scan happens immediately on
// start and then on every poll interval.
func (r *Runner) Run(ctx context.Context) error {
	defer r.bus.Close()

	go r.logEvents(r.bus.SubscribeAll(64))

	interval := r.cfg.Workers.PollInterval
	r.log.Info("workers started",
		"count", r.cfg.Workers.Count,
		"poll_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error("scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			r.log.Info("workers stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scan runs one poll cycle: load wanted items and acquire them with at most
// Workers.Count sessions in flight. Per-item failures are logged and do not
// stop the cycle.
func (r *Runner) scan(ctx context.Context) error {
	items, err := r.store.Wanted(0)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	r.log.Debug("scan cycle", "wanted", len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers.Count)
	for _, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.acquireOne(ctx, item)
			return nil
		})
	}
	return g.Wait()
}

// logEvents surfaces pipeline events in the daemon log. The channel closes
// when the bus shuts down.
func (r *Runner) logEvents(ch <-chan events.Event) {
	for e := range ch {
		r.log.Debug("event",
			"type", e.EventType(),
			"entity", e.EntityType(),
			"entity_id", e.EntityID())
	}
}

func (r *Runner) acquireOne(ctx context.Context, item *media.Item) {
	profile, err := r.cfg.Profile(item.Profile)
	if err != nil {
		r.log.Error("skipping item", "media_id", item.ID, "title", item.Title, "error", err)
		return
	}

	out, err := r.acquire.Acquire(ctx, item, profile, 0, nil)
	switch {
	case errors.Is(err, pipeline.ErrSessionActive):
		// Another worker picked it up; nothing to do.
	case err != nil:
		r.log.Warn("acquisition failed",
			"media_id", item.ID,
			"title", item.Title,
			"attempts", out.Attempts,
			"error", err)
	default:
		r.log.Info("trailer acquired",
			"media_id", item.ID,
			"title", item.Title,
			"path", out.FinalPath)
	}
}
