package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"repo-sync/core/notify"
	"repo-sync/core/reconcile"
	"repo-sync/core/validation"
	"repo-sync/feature/repository/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidURLs is returned when submitted URLs fail validation.
var ErrInvalidURLs = errors.New("submitted urls failed validation")

// SubmitResult is the result of replacing an owner's declared URLs.
type SubmitResult struct {
	Diagnostics []validation.Diagnostic `json:"diagnostics"`
	Outcome     *reconcile.Outcome      `json:"outcome,omitempty"`
}

// OwnerResult is the outcome of one owner within a pass over all owners.
type OwnerResult struct {
	Owner   string             `json:"owner"`
	Outcome *reconcile.Outcome `json:"outcome,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Service orchestrates validation, URL storage and reconciliation.
type Service struct {
	store     *GormStore
	engine    *reconcile.Engine
	validator *validation.Validator
	events    *notify.Recorder
	logger    *zap.Logger
	passes    singleflight.Group

	// life bounds shared passes; Close cancels it and waits for running.
	life    context.Context
	stop    context.CancelFunc
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// NewService creates a repository service. events may be nil.
func NewService(store *GormStore, engine *reconcile.Engine, validator *validation.Validator, events *notify.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	life, stop := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		engine:    engine,
		validator: validator,
		events:    events,
		logger:    logger,
		life:      life,
		stop:      stop,
	}
}

// Close cancels passes still running and waits for them to return. Passes
// requested afterwards fail with context.Canceled.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stop()
	s.running.Wait()
}

// track registers a running pass unless the service is closed.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.running.Add(1)
	return true
}

// HelpText returns the accepted URL formats.
func (s *Service) HelpText() string {
	return s.validator.HelpText()
}

// Validate checks urls on behalf of owner.
func (s *Service) Validate(ctx context.Context, owner string, urls []string) ([]validation.Diagnostic, error) {
	return s.validator.ValidateURLs(ctx, urls, owner)
}

// SubmitURLs validates urls, replaces the owner's declared URLs and runs a
// pass. Nothing is saved when validation reports diagnostics.
func (s *Service) SubmitURLs(ctx context.Context, owner string, urls []string) (*SubmitResult, error) {
	diagnostics, err := s.validator.ValidateURLs(ctx, urls, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to validate urls: %w", err)
	}
	if len(diagnostics) > 0 {
		return &SubmitResult{Diagnostics: diagnostics}, ErrInvalidURLs
	}

	if err := s.store.SetURLs(ctx, owner, urls); err != nil {
		return nil, fmt.Errorf("failed to save urls of %s: %w", owner, err)
	}

	// A pass already running was started with the previous URLs.
	s.passes.Forget(passKey(owner, s.engine.DryRun()))

	outcome, err := s.ReconcileOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Diagnostics: diagnostics, Outcome: outcome}, nil
}

// ReconcileOwner runs a pass for owner over its declared URLs. Concurrent
// calls for the same owner share one pass.
func (s *Service) ReconcileOwner(ctx context.Context, owner string) (*reconcile.Outcome, error) {
	return s.pass(ctx, owner, s.engine.DryRun())
}

// Plan computes the pass for owner without applying it.
func (s *Service) Plan(ctx context.Context, owner string) (*reconcile.Outcome, error) {
	return s.pass(ctx, owner, true)
}

func passKey(owner string, dryRun bool) string {
	if dryRun {
		return "plan:" + owner
	}
	return "apply:" + owner
}

// pass runs or joins the pass for owner. The shared pass is detached from the
// caller that started it, so one caller giving up does not fail the others;
// each caller stops waiting when its own ctx is done.
func (s *Service) pass(ctx context.Context, owner string, dryRun bool) (*reconcile.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.passes.DoChan(passKey(owner, dryRun), func() (interface{}, error) {
		if !s.track() {
			return nil, fmt.Errorf("repository service closed: %w", context.Canceled)
		}
		defer s.running.Done()

		passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		defer context.AfterFunc(s.life, cancel)()

		urls, err := s.store.URLs(passCtx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load urls of %s: %w", owner, err)
		}
		if dryRun {
			return s.engine.Plan(passCtx, owner, urls)
		}
		return s.engine.Reconcile(passCtx, owner, urls)
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("Stopped waiting for reconciliation", zap.String("owner", owner), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined running reconciliation", zap.String("owner", owner))
		}
		outcome, _ := res.Val.(*reconcile.Outcome)
		return outcome, res.Err
	}
}

// ReconcileAll runs a pass for every known owner, one owner at a time. A
// failing owner does not stop the others; failures are joined into the error.
func (s *Service) ReconcileAll(ctx context.Context) ([]OwnerResult, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	results := make([]OwnerResult, 0, len(owners))
	var errs []error
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		outcome, err := s.ReconcileOwner(ctx, owner)
		res := OwnerResult{Owner: owner, Outcome: outcome}
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			s.logger.Error("Reconciliation failed", zap.String("owner", owner), zap.Error(err))
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// List returns the stored repositories of owner.
func (s *Service) List(ctx context.Context, owner string) ([]models.Repository, error) {
	return s.store.List(ctx, owner)
}

// URLs returns the declared URLs of owner.
func (s *Service) URLs(ctx context.Context, owner string) ([]string, error) {
	return s.store.URLs(ctx, owner)
}

// Events returns the recently recorded notification events.
func (s *Service) Events() []notify.Event {
	if s.events == nil {
		return []notify.Event{}
	}
	return s.events.Events()
}

// Run reconciles every owner each interval until ctx is done. A non-positive
// interval returns immediately.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Reconciliation scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation scheduler stopped")
			return
		case <-ticker.C:
			start := time.Now()
			results, err := s.ReconcileAll(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Warn("Scheduled reconciliation finished with errors", zap.Error(err))
			}
			s.logger.Info("Scheduled reconciliation finished",
				zap.Int("owners", len(results)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}
