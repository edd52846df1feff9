// Package status merges validation and correction signals into the single
// authoritative per-cell view consumers display, and derives the aggregate
// counters shown in summaries.
package status

import (
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
)

// precedence ranks statuses for same-cycle reconciliation:
// CORRECTED > CORRECTABLE > INVALID > VALID. A cell that was corrected this
// cycle is reported corrected even when validation also (re)marked it valid.
var precedence = map[dataset.Status]int{
	dataset.StatusNone:        0,
	dataset.StatusValid:       1,
	dataset.StatusInvalid:     2,
	dataset.StatusCorrectable: 3,
	dataset.StatusCorrected:   4,
}

// Reconcile resolves two same-cycle signals for one cell to the one that
// takes precedence. It is pure derived data for presentation; engine state
// transitions across cycles follow the engines' own policies.
func Reconcile(a, b dataset.Status) dataset.Status {
	if precedence[b] > precedence[a] {
		return b
	}
	return a
}

// Summary aggregates cell statuses over the validated columns of a dataset.
// Recomputed on demand, never persisted.
type Summary struct {
	Total       int
	Valid       int
	Invalid     int
	Correctable int
	Corrected   int
}

// Summarize counts statuses over every cell in a bound column. Columns with
// no validation list configured are not applicable and never contribute to
// the counts.
func Summarize(ds *dataset.Dataset, bindings map[string]string) Summary {
	var s Summary
	for name := range bindings {
		col, ok := ds.ColumnIndex(name)
		if !ok {
			continue
		}
		for r := 0; r < ds.NumRows(); r++ {
			s.Total++
			switch ds.State(dataset.CellRef{Row: r, Col: col}).Status {
			case dataset.StatusValid:
				s.Valid++
			case dataset.StatusInvalid:
				s.Invalid++
			case dataset.StatusCorrectable:
				s.Correctable++
			case dataset.StatusCorrected:
				s.Corrected++
			}
		}
	}
	return s
}
