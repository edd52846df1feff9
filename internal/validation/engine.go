// Package validation decides per-cell validity of a dataset against
// maintained allow-lists, under configurable match strategies.
package validation

import (
	"go.uber.org/zap"

	"github.com/KaramelBytes/datamend-cli/internal/dataset"
)

// Options carries the validation configuration for one run. It is passed in
// explicitly at call time; the engine holds no ambient settings.
type Options struct {
	// Bindings maps a column name to its validation list category.
	// Columns absent from the map are not validated.
	Bindings map[string]string
	// Strategy is the default match strategy for all bound columns.
	Strategy Strategy
	// PerColumn overrides the strategy for individual columns.
	PerColumn map[string]Strategy
	// FuzzyThreshold is the minimum similarity for a fuzzy match.
	FuzzyThreshold float64
}

func (o Options) strategyFor(column string) Strategy {
	if s, ok := o.PerColumn[column]; ok {
		return s
	}
	if o.Strategy == "" {
		return StrategyExact
	}
	return o.Strategy
}

// Engine validates dataset cells against a ListStore.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates a validation engine. A nil logger is replaced with a
// no-op logger.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Validate checks every bound column of every row and writes VALID/INVALID
// into the dataset's status matrix. Cell values are never mutated. A bound
// column missing from the dataset is skipped and logged, not an error; an
// empty dataset yields an empty delta. Re-running on unchanged data produces
// identical statuses.
//
// A cell carrying a corrected annotation that validates clean keeps its
// CORRECTED status (the correction signal outranks plain VALID); one that
// fails validation re-enters the pipeline as INVALID, annotation retained
// for audit only.
func (e *Engine) Validate(ds *dataset.Dataset, lists *ListStore, opts Options) (dataset.Delta, error) {
	refs := make([]dataset.CellRef, 0, ds.NumRows())
	for _, binding := range e.boundColumns(ds, opts) {
		for r := 0; r < ds.NumRows(); r++ {
			refs = append(refs, dataset.CellRef{Row: r, Col: binding.col})
		}
	}
	return e.ValidateCells(ds, lists, opts, refs)
}

// ValidateCells validates only the given cells, using the same semantics as
// Validate. Cells in unbound columns are ignored. The correction engine uses
// this to re-validate a selection without touching statuses outside it.
func (e *Engine) ValidateCells(ds *dataset.Dataset, lists *ListStore, opts Options, refs []dataset.CellRef) (dataset.Delta, error) {
	byCol := make(map[int]boundColumn)
	for _, b := range e.attachLists(e.boundColumns(ds, opts), lists) {
		byCol[b.col] = b
	}
	var delta dataset.Delta
	for _, ref := range refs {
		b, ok := byCol[ref.Col]
		if !ok || !ds.InRange(ref) {
			continue
		}
		before := ds.State(ref).Status
		after := e.checkCell(ds, b, ref)
		if err := ds.SetStatus(ref.Row, ref.Col, after); err != nil {
			return delta, err
		}
		if after != before {
			delta = append(delta, ref)
		}
	}
	return delta, nil
}

type boundColumn struct {
	name     string
	category string
	col      int
	list     *List
	strategy Strategy
	fuzzy    float64
}

// boundColumns resolves the configured bindings against the dataset's actual
// columns. Missing columns and missing lists are skipped and logged.
func (e *Engine) boundColumns(ds *dataset.Dataset, opts Options) []boundColumn {
	out := make([]boundColumn, 0, len(opts.Bindings))
	for _, col := range ds.Columns() {
		category, ok := opts.Bindings[col.Name]
		if !ok {
			continue
		}
		idx, _ := ds.ColumnIndex(col.Name)
		out = append(out, boundColumn{
			name:     col.Name,
			category: category,
			col:      idx,
			strategy: opts.strategyFor(col.Name),
			fuzzy:    opts.FuzzyThreshold,
		})
	}
	for name := range opts.Bindings {
		if _, ok := ds.ColumnIndex(name); !ok {
			e.log.Warn("validated column not present in dataset, skipping",
				zap.String("column", name))
		}
	}
	return out
}

// attachLists fills in the list pointer per bound column. Columns bound to a
// category with no configured list are not applicable and are dropped.
func (e *Engine) attachLists(cols []boundColumn, lists *ListStore) []boundColumn {
	out := cols[:0]
	for _, b := range cols {
		b.list = lists.List(b.category)
		if b.list == nil {
			e.log.Warn("no validation list for category, column not validated",
				zap.String("column", b.name), zap.String("category", b.category))
			continue
		}
		out = append(out, b)
	}
	return out
}

func (e *Engine) checkCell(ds *dataset.Dataset, b boundColumn, ref dataset.CellRef) dataset.Status {
	value := ds.Value(ref.Row, ref.Col)
	matched := value != "" && b.list != nil && b.list.Matches(value, b.strategy, b.fuzzy)
	state := ds.State(ref)
	if matched {
		if state.Original != "" {
			return dataset.StatusCorrected
		}
		return dataset.StatusValid
	}
	return dataset.StatusInvalid
}
