package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/pan"
)

var checkRulesPath string

var checkCmd = &cobra.Command{
	Use:   "check <number>...",
	Short: "Check numbers against Luhn and the issuer table",
	Long: `Run the Luhn check and issuer classification on literal numbers.
Spaces and dashes are ignored. Each line shows the number, valid or invalid,
and the matching brands.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRulesPath, "rules", "", "Path to a custom issuer rules file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	rules, err := loadRules(checkRulesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	classifier := pan.NewClassifier(rules)

	out := cmd.OutOrStdout()
	for _, arg := range args {
		digits, err := pan.ParseDigits(arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}

		verdict := "invalid"
		var brands []string
		if pan.LuhnValid(digits) {
			verdict = "valid"
			brands = classifier.Brands(digits)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", pan.FormatDigits(digits), verdict, strings.Join(brands, ","))
	}
	return nil
}
