package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"tickerchat-go/internal/monitoring"
	"tickerchat-go/internal/monitoring/tracing"
	"tickerchat-go/internal/runtime"
	"tickerchat-go/internal/symbols"
)

// MarketAPI is the slice of the market-data client the engine needs.
type MarketAPI interface {
	TrendingSymbols(ctx context.Context) ([]string, error)
	BoostedAddresses(ctx context.Context) ([]string, error)
}

// Sender posts a message through one identity. Sends never fail upward; the
// implementation logs its own errors.
type Sender interface {
	Name() string
	SendMessage(ctx context.Context, text string)
}

// Renderer turns an optional subject into a question.
type Renderer interface {
	Render(subject string) (string, bool)
}

// Config holds the engine's timing parameters.
type Config struct {
	// MinInterval and MaxInterval bound the randomized wait between cycles.
	MinInterval time.Duration
	MaxInterval time.Duration
	// RefillInterval is the fixed period of the out-of-band store refill.
	RefillInterval time.Duration
}

// Engine drives the posting loop: randomized waits, alternation between the
// pre-fetched store and the live feed with single fallback, random identity
// selection, and unconditional rescheduling. It holds no package-level
// state; the alternation flag lives on the engine and each cycle works from
// a value captured at entry.
type Engine struct {
	cfg      Config
	store    *symbols.Store
	market   MarketAPI
	renderer Renderer
	senders  []Sender

	mu          sync.Mutex
	useLiveNext bool
	cycles      uint64
	lastCycle   time.Time
}

// Status is a point-in-time view of the engine for the status endpoint.
type Status struct {
	Cycles      uint64    `json:"cycles"`
	LastCycle   time.Time `json:"last_cycle,omitempty"`
	UseLiveNext bool      `json:"use_live_next"`
}

// New validates the timing bounds and builds an engine. Invalid bounds are a
// configuration error and must abort startup.
func New(cfg Config, store *symbols.Store, market MarketAPI, renderer Renderer, senders []Sender) (*Engine, error) {
	if cfg.MinInterval <= 0 {
		return nil, fmt.Errorf("minimum interval must be positive, got %s", cfg.MinInterval)
	}
	if cfg.MinInterval >= cfg.MaxInterval {
		return nil, fmt.Errorf("minimum interval %s must be strictly less than maximum %s",
			cfg.MinInterval, cfg.MaxInterval)
	}
	if cfg.RefillInterval <= 0 {
		return nil, fmt.Errorf("refill interval must be positive, got %s", cfg.RefillInterval)
	}
	if len(senders) == 0 {
		return nil, fmt.Errorf("at least one sender is required")
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		market:   market,
		renderer: renderer,
		senders:  senders,
	}, nil
}

// Start arms the posting loop and the fixed-period refill task. Both run
// until the task manager is stopped; no recoverable error ends either.
func (e *Engine) Start(tasks *runtime.TaskManager) error {
	if err := tasks.StartLoop(
		"posting-loop",
		"randomized question posting cycle",
		e.WaitInterval,
		e.RunCycle,
	); err != nil {
		return err
	}
	return tasks.StartPeriodic(
		"symbol-refill",
		"scheduled symbol store refill",
		e.cfg.RefillInterval,
		func(ctx context.Context) error { return e.refill(ctx, "scheduled") },
	)
}

// WaitInterval samples a wait duration uniformly within
// [MinInterval, MaxInterval].
func (e *Engine) WaitInterval() time.Duration {
	spread := int64(e.cfg.MaxInterval - e.cfg.MinInterval)
	return e.cfg.MinInterval + time.Duration(rand.Int63n(spread+1))
}

// RunCycle executes one posting cycle. It never returns an error: every
// failure inside the cycle is contained and logged, and the loop reschedules
// regardless of outcome.
func (e *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	cycleID := uuid.New().String()

	e.mu.Lock()
	liveFirst := e.useLiveNext
	e.mu.Unlock()

	// The flag flips at the end of every cycle, success or not.
	defer func() {
		e.mu.Lock()
		e.useLiveNext = !e.useLiveNext
		e.cycles++
		e.lastCycle = time.Now()
		e.mu.Unlock()
		monitoring.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := tracing.StartSpan(ctx, "scheduler", "posting-cycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("cycle.id", cycleID),
		attribute.Bool("cycle.live_first", liveFirst),
	)

	subject := e.pickSubject(ctx, liveFirst)
	span.SetAttributes(attribute.String("cycle.subject", subject))

	question, ok := e.renderer.Render(subject)
	if !ok {
		monitoring.CyclesTotal.WithLabelValues("skipped").Inc()
		log.WithField("cycle_id", cycleID).Info("no question could be rendered, skipping post")
		return nil
	}

	sender := e.senders[rand.Intn(len(e.senders))]
	span.SetAttributes(attribute.String("cycle.identity", sender.Name()))
	sender.SendMessage(ctx, question)

	monitoring.CyclesTotal.WithLabelValues("posted").Inc()
	log.WithFields(log.Fields{
		"cycle_id": cycleID,
		"identity": sender.Name(),
		"subject":  subject,
	}).Debug("cycle completed")
	return nil
}

// pickSubject consults the first source chosen by the alternation flag and
// falls back to the other exactly once. Both exhausted yields an empty
// subject and the cycle degrades to a generic question.
func (e *Engine) pickSubject(ctx context.Context, liveFirst bool) string {
	if liveFirst {
		if s := e.liveSubject(ctx); s != "" {
			return s
		}
		return e.storedSubject(ctx)
	}
	if s := e.storedSubject(ctx); s != "" {
		return s
	}
	return e.liveSubject(ctx)
}

// storedSubject reads the next identifier round-robin. An empty store below
// its low-water threshold triggers one synchronous refill and a single
// retried read.
func (e *Engine) storedSubject(ctx context.Context) string {
	if id, ok := e.store.Next(); ok {
		return id
	}
	if e.store.Size() < e.store.LowWater() {
		_ = e.refill(ctx, "on_demand")
		if id, ok := e.store.Next(); ok {
			return id
		}
	}
	return ""
}

// liveSubject fetches the trending list and picks one entry at random. Feed
// errors are logged and treated as an empty result.
func (e *Engine) liveSubject(ctx context.Context) string {
	list, err := e.market.TrendingSymbols(ctx)
	if err != nil {
		log.WithError(err).Warn("trending feed unavailable")
		return ""
	}
	if len(list) == 0 {
		return ""
	}
	return list[rand.Intn(len(list))]
}

// refill tops the store up from the boosted-addresses feed.
func (e *Engine) refill(ctx context.Context, trigger string) error {
	addrs, err := e.market.BoostedAddresses(ctx)
	if err != nil {
		monitoring.SymbolRefills.WithLabelValues(trigger, "error").Inc()
		return fmt.Errorf("boosted addresses feed: %w", err)
	}

	added := e.store.Add(ctx, addrs)
	monitoring.SymbolRefills.WithLabelValues(trigger, "success").Inc()
	log.WithFields(log.Fields{
		"trigger": trigger,
		"fetched": len(addrs),
		"added":   added,
		"size":    e.store.Size(),
	}).Debug("symbol store refilled")
	return nil
}

// Status reports cycle progress for the status endpoint.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Cycles:      e.cycles,
		LastCycle:   e.lastCycle,
		UseLiveNext: e.useLiveNext,
	}
}
