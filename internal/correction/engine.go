package correction

import (
	"context"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

// DefaultMaxIterations bounds recursive correction. User-authored rules can
// form cycles (A→B, B→A); the bound guarantees termination regardless.
const DefaultMaxIterations = 10

// ctx is polled once per this many cells while a pass scans its scope.
const cancelCheckCells = 256

// Options configures one Apply run. Passed explicitly at call time.
type Options struct {
	// OnlyInvalid restricts the pass to cells currently INVALID or
	// CORRECTABLE. When false, any in-scope cell whose value matches a
	// rule is rewritten.
	OnlyInvalid bool
	// Recursive repeats apply-then-revalidate passes until fixpoint or
	// MaxIterations.
	Recursive bool
	// MaxIterations bounds recursive passes; <=0 selects DefaultMaxIterations.
	MaxIterations int
	// Selection restricts the run to these cells. Nil means the whole
	// dataset. Cells outside the selection are never touched, in value or
	// status.
	Selection []dataset.CellRef
	// Validation is the configuration used for re-validation between
	// recursive passes and for mapping columns to rule categories.
	Validation validation.Options
	// Progress, when set, receives (completedPasses, plannedPasses) after
	// each pass. Advisory only.
	Progress func(done, total int)
}

func (o Options) maxIterations() int {
	if o.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return o.MaxIterations
}

// Change records one applied correction for the audit trail.
type Change struct {
	Row    int
	Col    int
	Column string
	From   string
	To     string
	RuleID string
}

// Stats summarizes one Apply run.
type Stats struct {
	TotalCorrections int
	CorrectedRows    int
	CorrectedCells   int
	Iterations       int
	// Converged is false only when the iteration bound cut off a run that
	// was still making corrections; the stats up to that point are valid.
	Converged bool
	Changes   []Change
}

// Engine applies correction rules to a dataset and keeps statuses in step
// by re-running validation between recursive passes.
type Engine struct {
	log       *zap.Logger
	validator *validation.Engine
}

// NewEngine creates a correction engine. A nil logger is replaced with a
// no-op logger.
func NewEngine(log *zap.Logger, validator *validation.Engine) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, validator: validator}
}

// Apply runs correction passes over ds. An empty rule table or empty scope
// yields zero stats and no error. On context cancellation the dataset is
// left at the most recently completed pass (a pass stages its writes, so no
// partially corrected row can be observed).
func (e *Engine) Apply(ctx context.Context, ds *dataset.Dataset, table *Table, lists *validation.ListStore, opts Options) (Stats, error) {
	stats := Stats{Converged: true}
	scope := e.resolveScope(ds, opts)
	if len(scope) == 0 || table.Len() == 0 {
		return stats, nil
	}

	maxIter := 1
	if opts.Recursive {
		maxIter = opts.maxIterations()
	}
	prevHash, hashValid := uint64(0), false

	for iter := 1; iter <= maxIter; iter++ {
		applied, err := e.pass(ctx, ds, table, scope, opts, &stats)
		if err != nil {
			return stats, err
		}
		stats.Iterations = iter
		if opts.Progress != nil {
			opts.Progress(iter, maxIter)
		}
		if applied == 0 {
			break
		}
		if !opts.Recursive {
			break
		}
		if _, err := e.validator.ValidateCells(ds, lists, opts.Validation, scope); err != nil {
			return stats, err
		}
		h := e.scopeHash(ds, scope)
		if hashValid && h == prevHash {
			break
		}
		prevHash, hashValid = h, true
		if iter == maxIter && applied > 0 {
			e.log.Warn("correction did not converge within iteration bound",
				zap.Int("iterations", iter))
			stats.Converged = false
		}
	}

	e.tally(&stats)
	return stats, nil
}

// CheckCorrectable marks every INVALID cell that at least one enabled rule
// matches as CORRECTABLE, and demotes CORRECTABLE cells whose rule has gone
// away back to INVALID. Returns the cells whose status changed.
func (e *Engine) CheckCorrectable(ds *dataset.Dataset, table *Table, opts Options) dataset.Delta {
	var delta dataset.Delta
	categories := columnCategories(ds, opts.Validation)
	for _, ref := range ds.StatusRefs() {
		st := ds.State(ref).Status
		if st != dataset.StatusInvalid && st != dataset.StatusCorrectable {
			continue
		}
		matches := table.FindMatches(ds.Value(ref.Row, ref.Col), categories[ref.Col])
		want := dataset.StatusInvalid
		if len(matches) > 0 {
			want = dataset.StatusCorrectable
		}
		if want != st {
			_ = ds.SetStatus(ref.Row, ref.Col, want)
			delta = append(delta, ref)
		}
	}
	return delta
}

// plannedChange is a staged write: matches are collected for the whole pass
// before any cell is mutated, so cancellation mid-scan leaves the dataset at
// the previous pass's state.
type plannedChange struct {
	ref  dataset.CellRef
	rule *Rule
}

func (e *Engine) pass(ctx context.Context, ds *dataset.Dataset, table *Table, scope []dataset.CellRef, opts Options, stats *Stats) (int, error) {
	categories := columnCategories(ds, opts.Validation)
	var planned []plannedChange
	for i, ref := range scope {
		if i%cancelCheckCells == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if opts.OnlyInvalid {
			st := ds.State(ref).Status
			if st != dataset.StatusInvalid && st != dataset.StatusCorrectable {
				continue
			}
		}
		matches := table.FindMatches(ds.Value(ref.Row, ref.Col), categories[ref.Col])
		if len(matches) == 0 {
			continue
		}
		// Lowest order wins; FindMatches already sorts ascending.
		planned = append(planned, plannedChange{ref: ref, rule: matches[0]})
	}
	for _, p := range planned {
		from := ds.Value(p.ref.Row, p.ref.Col)
		if err := ds.ApplyCorrection(p.ref.Row, p.ref.Col, p.rule.ToValue); err != nil {
			return 0, err
		}
		stats.Changes = append(stats.Changes, Change{
			Row:    p.ref.Row,
			Col:    p.ref.Col,
			Column: ds.ColumnName(p.ref.Col),
			From:   from,
			To:     p.rule.ToValue,
			RuleID: p.rule.ID,
		})
		stats.TotalCorrections++
	}
	return len(planned), nil
}

// resolveScope returns the cells a run may touch, in row-major order. With
// no selection that is the whole dataset: general-category rules apply to
// every column, not only validated ones.
func (e *Engine) resolveScope(ds *dataset.Dataset, opts Options) []dataset.CellRef {
	if opts.Selection != nil {
		scope := make([]dataset.CellRef, 0, len(opts.Selection))
		for _, ref := range opts.Selection {
			if ds.InRange(ref) {
				scope = append(scope, ref)
			}
		}
		return scope
	}
	scope := make([]dataset.CellRef, 0, ds.NumRows()*ds.NumCols())
	for r := 0; r < ds.NumRows(); r++ {
		for c := 0; c < ds.NumCols(); c++ {
			scope = append(scope, dataset.CellRef{Row: r, Col: c})
		}
	}
	return scope
}

// scopeHash fingerprints the in-scope values so recursion can stop early
// when a pass no longer changes anything it can see.
func (e *Engine) scopeHash(ds *dataset.Dataset, scope []dataset.CellRef) uint64 {
	h := fnv.New64a()
	for _, ref := range scope {
		h.Write([]byte(ds.Value(ref.Row, ref.Col)))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// tally derives the distinct-row and distinct-cell counters from the change
// records.
func (e *Engine) tally(stats *Stats) {
	rows := make(map[int]struct{})
	cells := make(map[dataset.CellRef]struct{})
	for _, ch := range stats.Changes {
		rows[ch.Row] = struct{}{}
		cells[dataset.CellRef{Row: ch.Row, Col: ch.Col}] = struct{}{}
	}
	stats.CorrectedRows = len(rows)
	stats.CorrectedCells = len(cells)
}

// columnCategories maps each column index to the rule category used for its
// cells. Columns bound to a validation category use that category; unbound
// columns are only reachable by general rules.
func columnCategories(ds *dataset.Dataset, vopts validation.Options) map[int]Category {
	out := make(map[int]Category, ds.NumCols())
	for c := 0; c < ds.NumCols(); c++ {
		out[c] = CategoryGeneral
	}
	for name, category := range vopts.Bindings {
		if idx, ok := ds.ColumnIndex(name); ok {
			if parsed, err := ParseCategory(category); err == nil {
				out[idx] = parsed
			}
		}
	}
	return out
}
