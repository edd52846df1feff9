package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datamend-cli/internal/tabular"
	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

var (
	validateStrategy  string
	validateThreshold float64
	validateListsDir  string
	validateShowMax   int
)

var validateCmd = &cobra.Command{
	Use:   "validate <data.csv>",
	Short: "Validate a CSV log against the maintained allow-lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		if validateStrategy != "" {
			if _, err := validation.ParseStrategy(validateStrategy); err != nil {
				return err
			}
			cfg.MatchStrategy = validateStrategy
		}
		if cmd.Flags().Changed("fuzzy-threshold") {
			cfg.FuzzyThreshold = validateThreshold
		}
		if validateListsDir != "" {
			cfg.ListsDir = validateListsDir
		}
		sess, err := newSession()
		if err != nil {
			return err
		}
		ds, err := tabular.ReadCSV(args[0])
		if err != nil {
			return err
		}
		if _, err := sess.ImportDataset(context.Background(), ds); err != nil {
			return err
		}
		if _, _, err := sess.Validate(context.Background()); err != nil {
			return err
		}
		sum := sess.Summary()
		fmt.Printf("✓ Validated %d cells: %d valid, %d invalid, %d correctable, %d corrected\n",
			sum.Total, sum.Valid, sum.Invalid, sum.Correctable, sum.Corrected)
		if sum.Invalid+sum.Correctable > 0 {
			printOffenders(ds, validateShowMax)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateStrategy, "strategy", "", "match strategy: exact, case_insensitive, fuzzy")
	validateCmd.Flags().Float64Var(&validateThreshold, "fuzzy-threshold", 0.8, "minimum similarity for fuzzy matches")
	validateCmd.Flags().StringVar(&validateListsDir, "lists-dir", "", "directory of validation list files (overrides config)")
	validateCmd.Flags().IntVar(&validateShowMax, "show", 20, "max offending cells to print (0 = all)")
}
