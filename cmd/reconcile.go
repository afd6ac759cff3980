package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"repo-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileOwner  string
	reconcileAll    bool
	reconcileDryRun bool
	yesConfirm      bool
)

// reconcileCmd runs reconciliation passes from the command line.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile repository records with their providers",
	Long: `Fetch every declared URL of an owner and bring the stored repository
records in line: create new ones, update changed ones and delete the ones no
provider reports any more.

The plan is always printed first. Deletions and updates are applied only after
confirmation.

Examples:
  # Report only (dry-run)
  reconcile --owner alice --dry-run

  # Apply with interactive confirmation
  reconcile --owner alice

  # Apply for every owner, non-interactive
  reconcile --all --yes`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOwner, "owner", "", "Owner to reconcile")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "Reconcile every known owner")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm changes (non-interactive)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if reconcileOwner == "" && !reconcileAll {
		return errors.New("either --owner or --all is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer rt.close()
	l := rt.logger

	owners := []string{reconcileOwner}
	if reconcileAll {
		if owners, err = rt.store.Owners(ctx); err != nil {
			return fmt.Errorf("failed to list owners: %w", err)
		}
	}

	var failed []error
	for _, owner := range owners {
		// Step 1: Plan (always runs)
		l.Info("Planning reconciliation...", zap.String("owner", owner))
		plan, err := rt.service.Plan(ctx, owner)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", owner, err))
			l.Error("Planning failed", zap.String("owner", owner), zap.Error(err))
			continue
		}

		// Step 2: Print report
		printReconcileReport(l, plan)

		if reconcileDryRun || rt.cfg.Reconcile.DryRun {
			l.Info("Dry-run mode: No changes were made.", zap.String("owner", owner))
			continue
		}
		if len(plan.Actions) == 0 {
			l.Info("No actions required.", zap.String("owner", owner))
			continue
		}

		// Step 3: Apply (if confirmed)
		if !confirmDestructiveAction() {
			l.Warn("Operation cancelled by user. No changes were made.", zap.String("owner", owner))
			continue
		}

		l.Info("Applying actions...", zap.String("owner", owner))
		out, err := rt.service.ReconcileOwner(ctx, owner)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", owner, err))
			l.Error("Reconciliation failed", zap.String("owner", owner), zap.Error(err))
			continue
		}
		l.Info("Successfully executed actions", zap.String("owner", owner), zap.Int("count", out.Applied))
	}

	return errors.Join(failed...)
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.Outcome) {
	l.Info("Reconciliation report",
		zap.String("owner", plan.Owner),
		zap.Bool("no_providers", plan.NoProviders),
		zap.Int("gathered", plan.Gathered),
		zap.Int("unchanged", plan.Unchanged),
		zap.Int("retained", plan.Retained),
		zap.Int("failures", len(plan.Failures)),
	)

	for _, f := range plan.Failures {
		l.Warn("Fetch failure",
			zap.String("kind", string(f.Kind)),
			zap.String("url", f.URL),
			zap.String("provider", f.Provider),
			zap.String("reason", f.Reason),
		)
	}

	if len(plan.Actions) > 0 {
		l.Info("Planned actions",
			zap.Int("create_actions", plan.Created),
			zap.Int("update_actions", plan.Updated),
			zap.Int("delete_actions", plan.Deleted),
			zap.Int("total_actions", len(plan.Actions)),
		)

		// Show sample of actions (max 5 for logger)
		maxShow := 5
		if len(plan.Actions) < maxShow {
			maxShow = len(plan.Actions)
		}
		for i := 0; i < maxShow; i++ {
			action := plan.Actions[i]
			l.Info("Sample action",
				zap.String("type", string(action.Type)),
				zap.String("machine_name", action.MachineName),
				zap.String("source", action.Source),
				zap.String("reason", action.Reason),
			)
		}
		if len(plan.Actions) > maxShow {
			l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
		}
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm changes: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
