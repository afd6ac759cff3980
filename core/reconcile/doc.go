// Package reconcile converges the persisted repository records of one owner
// with the metadata currently reported by the enabled source providers.
//
// A reconciliation pass runs in three steps:
//
//  1. Gather: every declared URL is offered to every enabled provider. Providers
//     that validate the URL fetch its metadata. Fetches run on a bounded worker
//     pool; results are merged in declaration order, then provider order, so that
//     two URLs resolving to the same machine name always resolve the same way.
//  2. Upsert: each gathered repository is hashed and compared with the stored
//     record for (owner, machine name, source). Missing records are created,
//     records whose hash changed are updated.
//  3. Delete: stored records of the owner whose machine name was not gathered
//     are deleted. Records whose URL failed with a transient error in this pass
//     are retained.
//
// # Plan and Apply
//
// Steps 2 and 3 first build a plan (read only) and then apply it. In dry-run
// mode the plan is returned without being applied, so the reported counts are
// identical in shape to a live run while storage and notifications are left
// untouched.
//
// # Failures
//
// Per-URL failures (not found, transient, duplicate ownership, unknown provider
// kinds) are collected in Outcome.Failures and never abort the pass. Only store
// errors and context cancellation abort a pass; those are returned as errors.
//
// # Usage
//
//	engine := reconcile.New(registry, store, sink, logger, reconcile.Options{
//	    Enabled: []string{"github", "yml_remote"},
//	    Workers: 4,
//	})
//	outcome, err := engine.Reconcile(ctx, "alice", urls)
package reconcile
