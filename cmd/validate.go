package cmd

import (
	"errors"
	"fmt"

	"repo-sync/core/validation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateOwner string

// validateCmd checks URLs against the enabled providers without saving them.
var validateCmd = &cobra.Command{
	Use:   "validate [url...]",
	Short: "Validate repository URLs",
	Long: `Checks that each URL is accepted by an enabled provider, that the
repository exists, and that no other owner has added it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer rt.close()

		diagnostics, err := rt.service.Validate(cmd.Context(), validateOwner, args)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if len(diagnostics) == 0 {
			rt.logger.Info("All URLs are valid", zap.Int("count", len(args)))
			return nil
		}

		for _, d := range diagnostics {
			rt.logger.Warn(d.Message, zap.String("kind", string(d.Kind)), zap.String("url", d.URL))
		}
		return errors.Join(diagnosticErrors(diagnostics)...)
	},
}

func diagnosticErrors(diagnostics []validation.Diagnostic) []error {
	errs := make([]error, 0, len(diagnostics))
	for _, d := range diagnostics {
		if err := d.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.URL, err))
			continue
		}
		errs = append(errs, errors.New(d.Message))
	}
	return errs
}

func init() {
	validateCmd.Flags().StringVar(&validateOwner, "owner", "", "Owner submitting the URLs")
	RootCmd.AddCommand(validateCmd)
}
