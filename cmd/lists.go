package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage the validation allow-lists",
}

var listsListCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "Show categories, or the entries of one category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadLists()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			categories := store.Categories()
			if len(categories) == 0 {
				fmt.Println("(no validation lists)")
				return nil
			}
			for _, c := range categories {
				fmt.Printf("- %s (%d entries)\n", c, store.List(c).Len())
			}
			return nil
		}
		l := store.List(args[0])
		if l == nil {
			return fmt.Errorf("no validation list for category %q", args[0])
		}
		for _, v := range l.Values() {
			fmt.Println(v)
		}
		return nil
	},
}

var listsAddCmd = &cobra.Command{
	Use:   "add <category> <value>...",
	Short: "Add values to a category's allow-list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadLists()
		if err != nil {
			return err
		}
		l := store.Ensure(args[0])
		added := 0
		for _, v := range args[1:] {
			if l.Add(v) {
				added++
			}
		}
		if err := store.SaveDir(cfg.ListsDir); err != nil {
			return err
		}
		fmt.Printf("✓ Added %d value(s) to %s (%d duplicates ignored)\n", added, args[0], len(args[1:])-added)
		return nil
	},
}

var listsRemoveCmd = &cobra.Command{
	Use:   "remove <category> <value>...",
	Short: "Remove values from a category's allow-list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadLists()
		if err != nil {
			return err
		}
		l := store.List(args[0])
		if l == nil {
			return fmt.Errorf("no validation list for category %q", args[0])
		}
		removed := 0
		for _, v := range args[1:] {
			if l.Remove(v) {
				removed++
			}
		}
		if err := store.SaveDir(cfg.ListsDir); err != nil {
			return err
		}
		fmt.Printf("✓ Removed %d value(s) from %s\n", removed, args[0])
		return nil
	},
}

var listsImportCmd = &cobra.Command{
	Use:   "import <category> <file.txt>",
	Short: "Import entries (one per line) into a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadLists()
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open list file: %w", err)
		}
		defer f.Close()
		l := store.Ensure(args[0])
		added := 0
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if l.Add(sc.Text()) {
				added++
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read list file: %w", err)
		}
		if err := store.SaveDir(cfg.ListsDir); err != nil {
			return err
		}
		fmt.Printf("✓ Imported %d value(s) into %s\n", added, args[0])
		return nil
	},
}

var listsExportCmd = &cobra.Command{
	Use:   "export <category> <file.txt>",
	Short: "Export a category's entries, one per line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadLists()
		if err != nil {
			return err
		}
		l := store.List(args[0])
		if l == nil {
			return fmt.Errorf("no validation list for category %q", args[0])
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		for _, v := range l.Values() {
			fmt.Fprintln(w, v)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		fmt.Printf("✓ Exported %d value(s) from %s\n", l.Len(), args[0])
		return nil
	},
}

func loadLists() (*validation.ListStore, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	return validation.LoadDir(cfg.ListsDir)
}

func init() {
	rootCmd.AddCommand(listsCmd)
	listsCmd.AddCommand(listsListCmd, listsAddCmd, listsRemoveCmd, listsImportCmd, listsExportCmd)
}
