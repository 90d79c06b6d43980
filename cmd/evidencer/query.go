package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditcore/evidencer/model"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run one hybrid retrieval query",
	Args:  cobra.ExactArgs(1),
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
		filter := filterFromFlags(cmd, tenant)

		explain, _ := cmd.Flags().GetBool("explain")
		if explain {
			set, err := eng.Explain(cmd.Context(), query, filter)
			if err != nil {
				return err
			}
			return printJSON(set)
		}

		set, err := eng.Retrieve(cmd.Context(), query, filter)
		if err != nil {
			return err
		}
		return printJSON(set)
	},
}

var multiCmd = &cobra.Command{
	Use:   "multi [text]...",
	Short: "Run several sub-queries and merge their evidence",
	Args:  cobra.MinimumNArgs(1),
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

		subs := make([]model.SubQuery, len(args))
		for i, text := range args {
			subs[i] = model.SubQuery{Text: text}
		}

		query := model.RetrievalQuery{Text: args[0], TenantID: tenant}
		set, err := eng.RetrieveMulti(cmd.Context(), query, subs, filterFromFlags(cmd, tenant))
		if err != nil {
			return err
		}
		return printJSON(set)
	},
}

func filterFromFlags(cmd *cobra.Command, tenant string) *model.ScopeFilter {
	collection, _ := cmd.Flags().GetString("collection")
	standards, _ := cmd.Flags().GetStringSlice("standard")
	if collection == "" && len(standards) == 0 {
		return nil
	}
	return &model.ScopeFilter{
		TenantID:     tenant,
		CollectionID: collection,
		Standards:    standards,
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, cmd := range []*cobra.Command{queryCmd, multiCmd} {
		cmd.Flags().String("collection", "", "restrict to one collection")
		cmd.Flags().StringSlice("standard", nil, "restrict to named standards")
	}
	queryCmd.Flags().Bool("explain", false, "annotate items with score components")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(multiCmd)
}
