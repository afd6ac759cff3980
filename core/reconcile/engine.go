package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repo-sync/core/notify"
	"repo-sync/core/provider"

	"go.uber.org/zap"
)

// Engine reconciles repository records for one owner at a time.
type Engine struct {
	registry *provider.Registry
	store    Store
	sink     notify.Sink
	logger   *zap.Logger
	opts     Options
	now      func() time.Time
}

// New creates an engine. A nil sink discards notifications.
func New(registry *provider.Registry, store Store, sink notify.Sink, logger *zap.Logger, opts Options) *Engine {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		store:    store,
		sink:     sink,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// DryRun reports whether the engine only plans.
func (e *Engine) DryRun() bool {
	return e.opts.DryRun
}

func (e *Engine) workers() int {
	if e.opts.Workers < 1 {
		return 1
	}
	return e.opts.Workers
}

// Reconcile runs a full pass for owner over the declared urls. In dry-run mode
// the plan is returned without touching the store or the sink.
func (e *Engine) Reconcile(ctx context.Context, owner string, urls []string) (*Outcome, error) {
	return e.run(ctx, owner, urls, e.opts.DryRun)
}

// Plan runs a pass for owner without applying it, regardless of the engine mode.
func (e *Engine) Plan(ctx context.Context, owner string, urls []string) (*Outcome, error) {
	return e.run(ctx, owner, urls, true)
}

func (e *Engine) run(ctx context.Context, owner string, urls []string, dryRun bool) (*Outcome, error) {
	l := e.logger.With(zap.String("owner", owner), zap.Bool("dry_run", dryRun))

	// Snapshot of the enabled set for this pass.
	providers, err := e.registry.Enabled(e.opts.Enabled)
	var providerFailures []Failure
	if err != nil {
		l.Warn("Some enabled providers could not be resolved", zap.Error(err))
		providerFailures = resolveFailures(err)
	}

	g, err := e.gather(ctx, providers, urls)
	if err != nil {
		return nil, fmt.Errorf("gather aborted: %w", err)
	}

	out, err := e.buildPlan(ctx, owner, g)
	if err != nil {
		return nil, err
	}
	out.DryRun = dryRun
	out.NoProviders = len(providers) == 0
	out.Failures = append(providerFailures, out.Failures...)

	if !dryRun {
		executed, err := e.applyPlan(ctx, out)
		out.Applied = executed
		if err != nil {
			return out, err
		}
	}

	l.Info("Reconciliation finished",
		zap.Int("gathered", out.Gathered),
		zap.Int("created", out.Created),
		zap.Int("updated", out.Updated),
		zap.Int("deleted", out.Deleted),
		zap.Int("unchanged", out.Unchanged),
		zap.Int("retained", out.Retained),
		zap.Int("failures", len(out.Failures)),
	)

	return out, nil
}

// resolveFailures converts registry resolution errors into outcome failures.
func resolveFailures(err error) []Failure {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	failures := make([]Failure, 0, len(errs))
	for _, e := range errs {
		f := Failure{Kind: FailureUnknownProvider, Reason: e.Error()}
		var unknown *provider.UnknownKindError
		if errors.As(e, &unknown) {
			f.Provider = unknown.Kind
		}
		failures = append(failures, f)
	}
	return failures
}

func (e *Engine) notify(ctx context.Context, action notify.Action, rec *Record) {
	e.sink.Notify(ctx, notify.Event{
		Action: action,
		At:     e.now(),
		Record: notify.Record{
			ID:            rec.ID,
			Owner:         rec.Owner,
			MachineName:   rec.MachineName,
			Source:        rec.Source,
			Label:         rec.Label,
			Description:   rec.Description,
			NumOpenIssues: rec.NumOpenIssues,
			URL:           rec.URL,
			Hash:          rec.Hash,
		},
	})
}
