package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datamend-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or initialize DataMend configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Println("columns:")
		names := make([]string, 0, len(cfg.Columns))
		for c := range cfg.Columns {
			names = append(names, c)
		}
		sort.Strings(names)
		for _, c := range names {
			fmt.Printf("  %s: %s\n", c, cfg.Columns[c])
		}
		fmt.Printf("match_strategy: %s\n", cfg.MatchStrategy)
		fmt.Printf("fuzzy_threshold: %.2f\n", cfg.FuzzyThreshold)
		fmt.Printf("only_invalid: %v\n", cfg.OnlyInvalid)
		fmt.Printf("recursive: %v\n", cfg.Recursive)
		fmt.Printf("max_iterations: %d\n", cfg.MaxIterations)
		fmt.Printf("auto_validate_on_import: %v\n", cfg.AutoValidateOnImport)
		fmt.Printf("auto_correct_on_validation: %v\n", cfg.AutoCorrectOnValidation)
		fmt.Printf("auto_correct_on_import: %v\n", cfg.AutoCorrectOnImport)
		fmt.Printf("lists_dir: %s\n", cfg.ListsDir)
		fmt.Printf("rules_file: %s\n", cfg.RulesFile)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if c == nil {
			loaded, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			c = loaded
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("✓ Configuration written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
