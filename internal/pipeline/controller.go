// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the analysis stages of one session. A
// Controller owns the session's ModelState, enforces the stage order,
// tracks a loading flag and last error per stage, and merges every stage
// result through the pure Reduce function.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/gioia-engine/internal/aggregate"
	"github.com/pdiddy/gioia-engine/internal/coding"
	"github.com/pdiddy/gioia-engine/internal/embedding"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/modeling"
	"github.com/pdiddy/gioia-engine/internal/review"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// Status is the observable state of one stage.
type Status struct {
	Loading bool
	Err     error
	Updated time.Time
}

// SessionStore persists a session after every merged stage result.
type SessionStore interface {
	SaveState(ctx context.Context, sessionID, stage string, state types.ModelState) error
}

// Workers bundles the stage implementations a Controller drives.
type Workers struct {
	Coder      *coding.Coder
	Aggregator *aggregate.Aggregator
	Modeler    *modeling.Modeler
	Reviewer   *review.Reviewer
	Embedder   embedding.Embedder
}

// NewWorkers builds every stage implementation over one gateway and one
// embedder.
func NewWorkers(g llm.Gateway, e embedding.Embedder, prompts llm.Prompts, cfg types.StageConfig, logger *slog.Logger) Workers {
	return Workers{
		Coder:      coding.NewCoder(g, prompts, cfg, logger),
		Aggregator: aggregate.NewAggregator(g, prompts, cfg, logger),
		Modeler:    modeling.NewModeler(g, e, prompts, cfg, logger),
		Reviewer:   review.NewReviewer(g, prompts, logger),
		Embedder:   e,
	}
}

// Controller runs the stages of one session. Readers (Snapshot, Stage,
// Status) never block on a running stage; stage runs are serialized and a
// run triggered while another is in flight fails with ErrBusy.
type Controller struct {
	workers Workers

	// run is held for the whole duration of a stage run.
	run sync.Mutex

	mu     sync.RWMutex
	state  types.ModelState
	stage  Stage
	status map[Stage]Status

	sessionID     string
	store         SessionStore
	maxIterations int
	rankK         int
	onChange      func(Stage, Status)
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore persists the session under id after every merged result.
func WithStore(s SessionStore, id string) Option {
	return func(c *Controller) {
		c.store = s
		c.sessionID = id
	}
}

// WithStage resumes a restored session at stage.
func WithStage(s Stage) Option {
	return func(c *Controller) { c.stage = s }
}

// WithMaxIterations bounds the critique loop. Zero leaves it unbounded.
func WithMaxIterations(n int) Option {
	return func(c *Controller) { c.maxIterations = max(n, 0) }
}

// WithRankK sets the number of chunks retrieved when ranking documents.
func WithRankK(k int) Option {
	return func(c *Controller) { c.rankK = k }
}

// WithOnChange registers a callback invoked after every status change. It
// runs on the goroutine driving the stage.
func WithOnChange(fn func(Stage, Status)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New returns a Controller owning state.
func New(state types.ModelState, w Workers, opts ...Option) *Controller {
	c := &Controller{
		workers: w,
		state:   state,
		status:  map[Stage]Status{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() types.ModelState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Reduce(c.state, StageResult{Kind: KindSuccess, Patch: fullPatch(c.state)})
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stage
}

// Status returns the status of stage s.
func (c *Controller) Status(s Stage) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status[s]
}

// Replace swaps the whole state, for example after a user edited it. The
// stage is kept. It fails with ErrBusy while a stage runs.
func (c *Controller) Replace(state types.ModelState) error {
	if !c.run.TryLock() {
		return ErrBusy
	}
	defer c.run.Unlock()
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return nil
}

// work computes a stage result from a snapshot of the state.
type work func(ctx context.Context, state types.ModelState) StageResult

// check validates a stage's prerequisites against the current stage and
// state.
type check func(current Stage, state types.ModelState) error

// execute runs one stage: it takes the session lock, validates the
// transition and the prerequisites, runs w, merges the result, persists it,
// and advances the stage. On a guard or hard failure the state and stage
// are unchanged.
func (c *Controller) execute(ctx context.Context, target Stage, pre check, w work) (StageResult, error) {
	if !c.run.TryLock() {
		return StageResult{Stage: target, Kind: KindError, Err: ErrBusy}, ErrBusy
	}
	defer c.run.Unlock()

	c.mu.RLock()
	current, snapshot := c.stage, c.state
	c.mu.RUnlock()

	if !CanTransition(current, target) {
		var err *GuardError
		switch target {
		case LiteratureReview, QualitativeModeling:
			err = guard(target, FinishPreviousSteps)
		default:
			err = guard(target, "Cannot run %s from %s; run %s first.", target, current, expected(current))
		}
		return StageResult{Stage: target, Kind: KindError, Err: err}, err
	}
	if pre != nil {
		if err := pre(current, snapshot); err != nil {
			return StageResult{Stage: target, Kind: KindError, Err: err}, err
		}
	}

	c.setStatus(target, Status{Loading: true})
	c.logger.Info("stage started", "stage", target.String())

	res := w(ctx, snapshot)
	res.Stage = target
	res.Finished = c.now()

	if res.Kind == KindError {
		c.setStatus(target, Status{Err: res.Err})
		c.logger.Warn("stage failed", "stage", target.String(), "error", res.Err)
		return res, res.Err
	}

	c.mu.Lock()
	c.state = Reduce(c.state, res)
	c.stage = target
	next := c.state
	c.mu.Unlock()

	c.persist(ctx, target, next)
	c.setStatus(target, Status{Err: res.Err})
	c.logger.Info("stage finished", "stage", target.String(), "kind", string(res.Kind))
	return res, res.Err
}

// mutate applies a result outside the stage sequence (ranking, details).
// The stage is unchanged.
func (c *Controller) mutate(ctx context.Context, w work) (StageResult, error) {
	if !c.run.TryLock() {
		return StageResult{Kind: KindError, Err: ErrBusy}, ErrBusy
	}
	defer c.run.Unlock()

	c.mu.RLock()
	stage, snapshot := c.stage, c.state
	c.mu.RUnlock()

	res := w(ctx, snapshot)
	res.Stage = stage
	res.Finished = c.now()
	if res.Kind == KindError {
		return res, res.Err
	}
	c.mu.Lock()
	c.state = Reduce(c.state, res)
	next := c.state
	c.mu.Unlock()
	c.persist(ctx, stage, next)
	return res, res.Err
}

func (c *Controller) persist(ctx context.Context, stage Stage, state types.ModelState) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveState(ctx, c.sessionID, stage.String(), state); err != nil {
		c.logger.Error("saving session", "session", c.sessionID, "error", err)
	}
}

func (c *Controller) setStatus(s Stage, st Status) {
	st.Updated = c.now()
	c.mu.Lock()
	c.status[s] = st
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(s, st)
	}
}

func expected(current Stage) string {
	next := current.Next()
	if len(next) == 0 {
		return current.String()
	}
	return next[0].String()
}

// fullPatch sets every patch field from s, used to deep copy a state.
func fullPatch(s types.ModelState) Patch {
	return Patch{
		Documents:           s.Documents,
		FirstOrderCodes:     s.FirstOrderCodes,
		FocusCodes:          s.FocusCodes,
		AggregateDimensions: s.AggregateDimensions,
		Theories:            s.Theories,
		ConceptTuples:       s.ConceptTuples,
		Interrelationships:  s.Interrelationships,
		ResearchQuestions:   s.ResearchQuestions,
	}
}
