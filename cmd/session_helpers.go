package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datamend-cli/internal/correction"
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/session"
	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

// newSession loads the persisted lists and rules named by the config and
// wires them into a fresh session.
func newSession() (*session.Session, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	lists, err := validation.LoadDir(cfg.ListsDir)
	if err != nil {
		return nil, fmt.Errorf("load validation lists: %w", err)
	}
	rules, res, err := correction.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	for _, re := range res.Errors {
		fmt.Printf("⚠ Skipped rule %v\n", re)
	}
	return session.New(cfg, lists, rules, log), nil
}

// parseSelection parses "row,col;row,col" into cell refs.
func parseSelection(s string) ([]dataset.CellRef, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var refs []dataset.CellRef
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rc := strings.Split(part, ",")
		if len(rc) != 2 {
			return nil, fmt.Errorf("invalid selection entry %q (want row,col)", part)
		}
		r, err := strconv.Atoi(strings.TrimSpace(rc[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid selection row %q", rc[0])
		}
		c, err := strconv.Atoi(strings.TrimSpace(rc[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid selection col %q", rc[1])
		}
		refs = append(refs, dataset.CellRef{Row: r, Col: c})
	}
	return refs, nil
}

// printOffenders lists the invalid and correctable cells of a dataset.
func printOffenders(ds *dataset.Dataset, limit int) {
	shown := 0
	for _, ref := range ds.StatusRefs() {
		st := ds.State(ref)
		if st.Status != dataset.StatusInvalid && st.Status != dataset.StatusCorrectable {
			continue
		}
		if limit > 0 && shown >= limit {
			fmt.Println("  …")
			return
		}
		fmt.Printf("  - row %d, %s: %q (%s)\n",
			ref.Row, ds.ColumnName(ref.Col), ds.Value(ref.Row, ref.Col), st.Status)
		shown++
	}
}
