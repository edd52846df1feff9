package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datamend-cli/internal/correction"
)

var (
	rulesCategory string
	rulesDisabled bool
	rulesAppend   bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the correction rule table",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules by ascending order",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		if table.Len() == 0 {
			fmt.Println("(no rules)")
			return nil
		}
		for _, r := range table.Rules() {
			state := "enabled"
			if !r.Enabled {
				state = "disabled"
			}
			fmt.Printf("%3d  %s  %q -> %q  [%s, %s]\n", r.Order, shortID(r.ID), r.FromValue, r.ToValue, r.Category, state)
		}
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <from> <to>",
	Short: "Add a correction rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		category, err := correction.ParseCategory(rulesCategory)
		if err != nil {
			return err
		}
		r, err := table.Add(args[0], args[1], category)
		if err != nil {
			return err
		}
		if rulesDisabled {
			_ = table.SetEnabled(r.ID, false)
		}
		if err := table.Save(cfg.RulesFile); err != nil {
			return err
		}
		fmt.Printf("✓ Rule added: %q -> %q [%s] (order %d)\n", r.FromValue, r.ToValue, r.Category, r.Order)
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a rule by id (prefix accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		id, err := resolveRuleID(table, args[0])
		if err != nil {
			return err
		}
		if err := table.Delete(id); err != nil {
			return err
		}
		if err := table.Save(cfg.RulesFile); err != nil {
			return err
		}
		fmt.Printf("✓ Rule %s removed\n", shortID(id))
		return nil
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(args[0], true) },
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleEnabled(args[0], false) },
}

var rulesReorderCmd = &cobra.Command{
	Use:   "reorder <id> <new-order>",
	Short: "Move a rule to a new rank; orders stay dense",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		id, err := resolveRuleID(table, args[0])
		if err != nil {
			return err
		}
		order, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid order %q", args[1])
		}
		if err := table.Reorder(id, order); err != nil {
			return err
		}
		if err := table.Save(cfg.RulesFile); err != nil {
			return err
		}
		fmt.Printf("✓ Rule %s moved to order %d\n", shortID(id), order)
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import rules from a From,To,Category,Enabled file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open rules file: %w", err)
		}
		defer f.Close()
		mode := correction.ImportReplace
		if rulesAppend {
			mode = correction.ImportAppend
		}
		res, err := table.Import(f, mode)
		if err != nil {
			return err
		}
		for _, re := range res.Errors {
			fmt.Printf("⚠ Skipped: %v\n", re)
		}
		if err := table.Save(cfg.RulesFile); err != nil {
			return err
		}
		fmt.Printf("✓ Imported %d rules (%d skipped)\n", res.Loaded, res.Skipped)
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Export the rule table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRules()
		if err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		if err := table.Export(f); err != nil {
			return err
		}
		fmt.Printf("✓ Exported %d rules to %s\n", table.Len(), args[0])
		return nil
	},
}

func loadRules() (*correction.Table, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	table, res, err := correction.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	for _, re := range res.Errors {
		fmt.Printf("⚠ Skipped rule %v\n", re)
	}
	return table, nil
}

func setRuleEnabled(rawID string, enabled bool) error {
	table, err := loadRules()
	if err != nil {
		return err
	}
	id, err := resolveRuleID(table, rawID)
	if err != nil {
		return err
	}
	if err := table.SetEnabled(id, enabled); err != nil {
		return err
	}
	if err := table.Save(cfg.RulesFile); err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("✓ Rule %s %s\n", shortID(id), state)
	return nil
}

// resolveRuleID accepts a full rule id or a unique prefix.
func resolveRuleID(table *correction.Table, raw string) (string, error) {
	if _, ok := table.Get(raw); ok {
		return raw, nil
	}
	var match string
	for _, r := range table.Rules() {
		if strings.HasPrefix(r.ID, raw) {
			if match != "" {
				return "", fmt.Errorf("rule id prefix %q is ambiguous", raw)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no rule matches id %q", raw)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd, rulesEnableCmd, rulesDisableCmd, rulesReorderCmd, rulesImportCmd, rulesExportCmd)
	rulesAddCmd.Flags().StringVar(&rulesCategory, "category", "general", "rule category: general, player, chest_type, source")
	rulesAddCmd.Flags().BoolVar(&rulesDisabled, "disabled", false, "create the rule disabled")
	rulesImportCmd.Flags().BoolVar(&rulesAppend, "append", false, "append to existing rules instead of replacing")
}
