package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/types"
)

var (
	rulesPath    string
	outputFormat string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage issuer rules",
	Long:  "Commands for listing and inspecting the issuer identification table",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issuer rules",
	Long:  "Display every issuer rule with its brand, length and prefix conditions",
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesListCmd.Flags().StringVar(&rulesPath, "rules", "", "Path to a custom issuer rules file")
	rulesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rules, err := loadRules(rulesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	// Output based on format
	switch outputFormat {
	case "json":
		return outputRulesJSON(cmd, rules)
	case "table":
		return outputRulesTable(cmd, rules)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func outputRulesJSON(cmd *cobra.Command, rules []*types.IssuerRule) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(rules)
}

func outputRulesTable(cmd *cobra.Command, rules []*types.IssuerRule) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "Brand", "Length", "Prefixes")

	for _, r := range rules {
		conds := make([]string, len(r.Any))
		for i, c := range r.Any {
			conds[i] = c.String()
		}
		if err := table.Append(r.ID, r.Brand, strconv.Itoa(r.Length), strings.Join(conds, " or ")); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}

	return table.Render()
}
