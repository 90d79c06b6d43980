package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditcore/evidencer/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate [text]",
	Short: "Validate a query's scope without retrieving",
	Long: `validate runs the pre-flight scope check: tenant identity, requested
standards against the tenant's ingested catalog, and clause ambiguity.
Exit status is non-zero when the scope is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		query := model.RetrievalQuery{Text: args[0], TenantID: tenant}
		report := eng.ValidateScope(cmd.Context(), query, filterFromFlags(cmd, tenant))
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.Valid {
			cmd.SilenceUsage = true
			return fmt.Errorf("scope invalid: %s", strings.Join(report.Violations, "; "))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("collection", "", "restrict to one collection")
	validateCmd.Flags().StringSlice("standard", nil, "restrict to named standards")
	rootCmd.AddCommand(validateCmd)
}
