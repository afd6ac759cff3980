package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"repo-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the database, storage and providers",
	Long:  `Checks that the database schema matches the repository models, that the manifest bucket is laid out as expected and that every enabled provider can be built.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

// storageCmd represents the integrity storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the manifest bucket structure",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

// serverCmd represents the integrity server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Check integrity of the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

// providersCmd represents the integrity providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Check that the enabled providers can be built",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(storageCmd, serverCmd, providersCmd)

	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Fix missing folders")
}

func runIntegrityChecks(ctx context.Context, runServer, runStorage, runProviders bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := bootstrap(false)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer rt.close()
	logg := rt.logger

	svc := integrity.NewService(rt.objects, rt.cfg.Storage.Bucket, logg, rt.db, rt.registry, rt.cfg.Providers.Enabled)

	if runServer {
		logg.Info("Checking server schema integrity...")
		report, err := svc.CheckServer()
		if err != nil {
			logg.Error("Server schema check failed", zap.Error(err))
		} else if report.Matched {
			logg.Info("Server schema matches expected definition.", zap.String("driver", report.Driver))
		} else {
			logg.Warn("Server schema mismatches found", zap.String("driver", report.Driver))
			for table, tblReport := range report.Tables {
				if tblReport.Status == "ok" {
					continue
				}
				if len(tblReport.MissingColumns) > 0 {
					logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
				}
				if len(tblReport.TypeMismatches) > 0 {
					logg.Warn("Type Mismatches", zap.String("table", table), zap.Strings("mismatches", tblReport.TypeMismatches))
				}
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
		}
	}

	if runStorage {
		logg.Info("Checking manifest bucket structure...")
		missing, err := svc.CheckStructure(ctx)
		switch {
		case errors.Is(err, integrity.ErrStorageDisabled):
			logg.Info("Object storage is disabled, skipping.")
		case err != nil:
			logg.Error("Structure check failed", zap.Error(err))
		case len(missing) == 0:
			logg.Info("Structure is intact.")
		default:
			logg.Warn("Missing folders detected", zap.Strings("missing", missing))
			if fixFlag {
				logg.Info("Fixing missing folders...")
				if err := svc.FixStructure(ctx, missing); err != nil {
					logg.Fatal("Failed to fix structure", zap.Error(err))
				}
				logg.Info("Structure fixed successfully.")
			} else {
				logg.Info("Run with --fix to create missing folders.")
			}
		}
	}

	if runProviders {
		logg.Info("Checking providers...")
		report, err := svc.CheckProviders()
		if err != nil {
			logg.Error("Providers check failed", zap.Error(err))
			return
		}
		for _, p := range report.Providers {
			if p.Status == "ok" {
				logg.Info("Provider ready", zap.String("kind", p.Kind), zap.String("label", p.Label))
			} else {
				logg.Warn("Provider unavailable", zap.String("kind", p.Kind), zap.String("error", p.Error))
			}
		}
		if !report.Matched {
			logg.Warn("Provider configuration has problems", zap.Strings("registered", report.Registered))
		}
	}
}
