// Package orchestrator owns the running tokens. It performs the initial
// parallel load, serializes per-token rescans, and schedules periodic
// rescans via cron. It contains no trust-store logic of its own - it
// only wires tokens to a schedule.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"trustdir/internal/logging"
	"trustdir/internal/token"
)

// ErrUnknownSlot is returned when no token is registered for a slot.
var ErrUnknownSlot = errors.New("unknown token slot")

// entry pairs a token with the mutex that serializes its scans. The
// token itself documents that Load and Reload must not run concurrently;
// this is where that contract is enforced.
type entry struct {
	mu  sync.Mutex
	tok *token.Token
}

// Orchestrator runs a set of tokens.
//
// Concurrency model:
//   - The token registry is fixed at construction; no locking is needed
//     to read it.
//   - Each token's scans (initial load, cron rescans, explicit Rescan
//     calls) are serialized by a per-token mutex. Scans of different
//     tokens run concurrently.
type Orchestrator struct {
	entries   map[uint64]*entry
	scheduler gocron.Scheduler
	cron      string
	logger    *slog.Logger
}

// Config carries the orchestrator's dependencies.
type Config struct {
	// Tokens to run, keyed by their slots. Must be non-empty.
	Tokens []*token.Token

	// RescanCron, when non-empty, schedules periodic rescans of every
	// token.
	RescanCron string

	Logger *slog.Logger
}

// New creates an orchestrator over the given tokens.
func New(cfg Config) (*Orchestrator, error) {
	if len(cfg.Tokens) == 0 {
		return nil, fmt.Errorf("no tokens to orchestrate")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	entries := make(map[uint64]*entry, len(cfg.Tokens))
	for _, tok := range cfg.Tokens {
		if _, exists := entries[tok.Slot()]; exists {
			return nil, fmt.Errorf("duplicate token slot %d", tok.Slot())
		}
		entries[tok.Slot()] = &entry{tok: tok}
	}

	o := &Orchestrator{
		entries: entries,
		cron:    cfg.RescanCron,
		logger:  logger.With("component", "orchestrator"),
	}

	if cfg.RescanCron != "" {
		s, err := gocron.NewScheduler()
		if err != nil {
			return nil, fmt.Errorf("create cron scheduler: %w", err)
		}
		if _, err := s.NewJob(
			gocron.CronJob(cfg.RescanCron, true),
			gocron.NewTask(o.RescanAll),
			gocron.WithName("rescan"),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("create rescan job: %w", err)
		}
		o.scheduler = s
	}

	return o, nil
}

// Start loads every token in parallel, then starts the cron scheduler
// (if one is configured). The context bounds the initial load only;
// scheduled rescans run until Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, e := range o.entries {
		e := e
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.mu.Lock()
			defer e.mu.Unlock()
			n := e.tok.Load()
			o.logger.Info("token loaded",
				"slot", e.tok.Slot(), "label", e.tok.Label(),
				"changed", n, "objects", e.tok.Index().Size())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if o.scheduler != nil {
		o.scheduler.Start()
		o.logger.Info("rescan scheduler started", "cron", o.cron)
	}
	return nil
}

// Rescan rescans a single token and reports how many files changed.
func (o *Orchestrator) Rescan(slot uint64) (int, error) {
	e, ok := o.entries[slot]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSlot, slot)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tok.Load(), nil
}

// RescanAll rescans every token and reports the total number of changed
// files across all of them.
func (o *Orchestrator) RescanAll() int {
	total := 0
	for _, slot := range o.Slots() {
		n, err := o.Rescan(slot)
		if err != nil {
			continue
		}
		total += n
	}
	if total > 0 {
		o.logger.Info("rescan picked up changes", "files", total)
	}
	return total
}

// Token returns the token registered for a slot.
func (o *Orchestrator) Token(slot uint64) (*token.Token, bool) {
	e, ok := o.entries[slot]
	if !ok {
		return nil, false
	}
	return e.tok, true
}

// Slots returns the registered slots in ascending order.
func (o *Orchestrator) Slots() []uint64 {
	slots := make([]uint64, 0, len(o.entries))
	for slot := range o.entries {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// Stop shuts down the scheduler, waits for in-flight rescans, and
// closes every token (persisting warm-start state where configured).
func (o *Orchestrator) Stop() error {
	var firstErr error
	if o.scheduler != nil {
		if err := o.scheduler.Shutdown(); err != nil {
			firstErr = fmt.Errorf("stop scheduler: %w", err)
		}
	}
	for _, slot := range o.Slots() {
		e := o.entries[slot]
		e.mu.Lock()
		err := e.tok.Close()
		e.mu.Unlock()
		if err != nil {
			o.logger.Warn("couldn't close token", "slot", slot, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
