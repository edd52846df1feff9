package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datamend-cli/internal/tabular"
)

var (
	correctRecursive bool
	correctMaxIter   int
	correctOnlyInv   bool
	correctSelection string
	correctOut       string
	correctReport    string
	correctStatusCol bool
)

var correctCmd = &cobra.Command{
	Use:   "correct <data.csv>",
	Short: "Validate a CSV log and apply the correction rule table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		ds, err := tabular.ReadCSV(args[0])
		if err != nil {
			return err
		}

		// Ctrl-C cancels between passes; the dataset stays at the last
		// completed pass.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if _, err := sess.ImportDataset(ctx, ds); err != nil {
			return err
		}
		if _, _, err := sess.Validate(ctx); err != nil {
			return err
		}

		opts := sess.CorrectionOptions()
		if cmd.Flags().Changed("recursive") {
			opts.Recursive = correctRecursive
		}
		if cmd.Flags().Changed("max-iterations") {
			opts.MaxIterations = correctMaxIter
		}
		if cmd.Flags().Changed("only-invalid") {
			opts.OnlyInvalid = correctOnlyInv
		}
		sel, err := parseSelection(correctSelection)
		if err != nil {
			return err
		}
		opts.Selection = sel
		opts.Progress = func(done, total int) {
			if debug {
				fmt.Printf("  pass %d/%d\n", done, total)
			}
		}

		stats, err := sess.ApplyCorrections(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Applied %d corrections across %d cells in %d rows (%d iterations)\n",
			stats.TotalCorrections, stats.CorrectedCells, stats.CorrectedRows, stats.Iterations)
		if !stats.Converged {
			fmt.Println("⚠ Correction did not converge within the iteration bound; rule table may contain a cycle")
		}
		sum := sess.Summary()
		fmt.Printf("  %d valid, %d invalid, %d correctable, %d corrected\n",
			sum.Valid, sum.Invalid, sum.Correctable, sum.Corrected)

		if correctOut != "" {
			if err := tabular.WriteCSV(correctOut, ds, correctStatusCol); err != nil {
				return err
			}
			fmt.Printf("✓ Corrected dataset written to %s\n", correctOut)
		}
		if correctReport != "" {
			if err := tabular.WriteAudit(correctReport, stats.Changes); err != nil {
				return err
			}
			fmt.Printf("✓ Audit trail written to %s\n", correctReport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correctCmd)
	correctCmd.Flags().BoolVar(&correctRecursive, "recursive", true, "repeat apply/revalidate passes until fixpoint")
	correctCmd.Flags().IntVar(&correctMaxIter, "max-iterations", 10, "iteration bound for recursive correction")
	correctCmd.Flags().BoolVar(&correctOnlyInv, "only-invalid", true, "only correct cells that failed validation")
	correctCmd.Flags().StringVar(&correctSelection, "selection", "", "restrict to cells: \"row,col;row,col\"")
	correctCmd.Flags().StringVarP(&correctOut, "out", "o", "", "write the corrected dataset to this file")
	correctCmd.Flags().StringVar(&correctReport, "report", "", "write a CSV audit trail of applied corrections")
	correctCmd.Flags().BoolVar(&correctStatusCol, "with-status", false, "append per-column status columns to --out")
}
