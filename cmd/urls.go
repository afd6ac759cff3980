package cmd

import (
	"errors"
	"fmt"

	"repo-sync/feature/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// urlsCmd is the parent command for declared URL management.
var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "Manage the repository URLs declared by an owner",
}

// urlsListCmd prints the declared URLs of an owner.
var urlsListCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List declared URLs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer rt.close()

		urls, err := rt.service.URLs(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load urls: %w", err)
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}

// urlsSetCmd replaces the declared URLs of an owner and reconciles.
var urlsSetCmd = &cobra.Command{
	Use:   "set <owner> [url...]",
	Short: "Replace declared URLs and reconcile",
	Long: `Validates the URLs, saves them in place of the owner's current list and
runs a reconciliation pass. Nothing is saved when any URL fails validation.
Passing no URL clears the list and removes the owner's repositories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer rt.close()

		owner := args[0]
		result, err := rt.service.SubmitURLs(cmd.Context(), owner, args[1:])
		if errors.Is(err, repository.ErrInvalidURLs) {
			for _, d := range result.Diagnostics {
				rt.logger.Warn(d.Message, zap.String("kind", string(d.Kind)))
			}
			return err
		}
		if err != nil {
			return err
		}

		printReconcileReport(rt.logger, result.Outcome)
		return nil
	},
}

func init() {
	urlsCmd.AddCommand(urlsListCmd, urlsSetCmd)
	RootCmd.AddCommand(urlsCmd)
}
