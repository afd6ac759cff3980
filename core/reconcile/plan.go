package reconcile

import (
	"context"
	"errors"
	"fmt"

	"repo-sync/core/notify"
	"repo-sync/core/provider"

	"go.uber.org/zap"
)

// buildPlan diffs the gathered set against the owner's stored records. It only
// reads from the store.
func (e *Engine) buildPlan(ctx context.Context, owner string, g *gathered) (*Outcome, error) {
	out := &Outcome{
		Owner:    owner,
		Gathered: len(g.items),
		Failures: g.failures,
		Actions:  []Action{},
	}

	// Upsert pass
	for _, name := range g.order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning aborted: %w", err)
		}

		md := g.items[name]
		hash := ContentHash(md)

		existing, err := e.store.Find(ctx, owner, md.MachineName, md.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to look up repository %s: %w", md.MachineName, err)
		}

		if existing != nil && existing.Hash == hash {
			out.Unchanged++
			continue
		}

		if existing == nil || normalizeURL(existing.URL) != normalizeURL(md.URL) {
			owned, err := e.store.URLOwnedByOther(ctx, md.URL, owner)
			if err != nil {
				return nil, fmt.Errorf("failed to check ownership of %s: %w", md.URL, err)
			}
			if owned {
				out.Failures = append(out.Failures, Failure{
					URL:      md.URL,
					Provider: md.Source,
					Kind:     FailureDuplicate,
					Reason:   "repository url is owned by another user",
				})
				continue
			}
		}

		if existing == nil {
			out.Created++
			out.Actions = append(out.Actions, Action{
				Type:        ActionCreate,
				MachineName: md.MachineName,
				Source:      md.Source,
				URL:         md.URL,
				Reason:      "new repository",
				Record:      &Record{Owner: owner, Hash: hash, Metadata: md},
			})
			continue
		}

		rec := *existing
		rec.Metadata = md
		rec.Hash = hash
		out.Updated++
		out.Actions = append(out.Actions, Action{
			Type:        ActionUpdate,
			MachineName: md.MachineName,
			Source:      md.Source,
			URL:         md.URL,
			Reason:      fmt.Sprintf("content hash changed: %s -> %s", shortHash(existing.Hash), shortHash(hash)),
			Record:      &rec,
		})
	}

	// Delete pass, computed from the complete gathered set only
	records, err := e.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of %s: %w", owner, err)
	}

	for i := range records {
		rec := records[i]
		if _, ok := g.items[rec.MachineName]; ok {
			continue
		}
		if g.protects(rec) {
			out.Retained++
			e.logger.Info("Keeping repository after transient failure",
				zap.String("owner", owner),
				zap.String("machine_name", rec.MachineName),
			)
			continue
		}

		out.Deleted++
		out.Actions = append(out.Actions, Action{
			Type:        ActionDelete,
			MachineName: rec.MachineName,
			Source:      rec.Source,
			URL:         rec.URL,
			Reason:      "no longer reported by any provider",
			Record:      &rec,
		})
	}

	return out, nil
}

// applyPlan executes the planned actions in order and emits one notification
// per executed action. It stops before the next action once ctx is done; the
// write in progress always runs to completion. A write rejected because
// another owner claimed the URL since planning becomes a duplicate failure.
func (e *Engine) applyPlan(ctx context.Context, out *Outcome) (executed int, err error) {
	writeCtx := context.WithoutCancel(ctx)

	actions := out.Actions
	kept := make([]Action, 0, len(actions))
	defer func() {
		out.Actions = kept
	}()

	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			kept = append(kept, actions[i:]...)
			return executed, fmt.Errorf("apply interrupted after %d actions: %w", executed, err)
		}

		switch action.Type {
		case ActionCreate:
			err = e.store.Create(writeCtx, action.Record)
		case ActionUpdate:
			err = e.store.Update(writeCtx, action.Record)
		case ActionDelete:
			err = e.store.Delete(writeCtx, action.Record)
		}

		if errors.Is(err, provider.ErrDuplicateOwnership) && action.Type != ActionDelete {
			e.rejectDuplicate(out, action)
			err = nil
			continue
		}
		if err != nil {
			kept = append(kept, actions[i:]...)
			return executed, fmt.Errorf("failed to %s repository %s: %w", action.Type, action.MachineName, err)
		}

		switch action.Type {
		case ActionCreate:
			e.notify(ctx, notify.ActionCreated, action.Record)
		case ActionUpdate:
			e.notify(ctx, notify.ActionUpdated, action.Record)
		case ActionDelete:
			e.notify(ctx, notify.ActionDeleted, action.Record)
		}
		kept = append(kept, action)
		executed++
	}

	return executed, nil
}

// rejectDuplicate moves a planned write that lost an ownership race into the
// failures of out.
func (e *Engine) rejectDuplicate(out *Outcome, action Action) {
	if action.Type == ActionCreate {
		out.Created--
	} else {
		out.Updated--
	}
	out.Failures = append(out.Failures, Failure{
		URL:      action.URL,
		Provider: action.Source,
		Kind:     FailureDuplicate,
		Reason:   "repository url is owned by another user",
	})
	e.logger.Warn("Repository url claimed by another owner during apply",
		zap.String("owner", out.Owner),
		zap.String("machine_name", action.MachineName),
		zap.String("url", action.URL),
	)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
