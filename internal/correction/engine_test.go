package correction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datamend-cli/internal/correction"
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

func chestDataset(rows ...[]string) *dataset.Dataset {
	ds := dataset.New([]dataset.Column{
		{Name: "PLAYER", Kind: dataset.KindString},
		{Name: "SOURCE", Kind: dataset.KindString},
	})
	for _, r := range rows {
		ds.AppendRow(r)
	}
	return ds
}

func chestLists() *validation.ListStore {
	store := validation.NewListStore()
	store.Ensure("player").Add("User3")
	store.Ensure("source").Add("Forest")
	return store
}

func vopts() validation.Options {
	return validation.Options{
		Bindings: map[string]string{"PLAYER": "player", "SOURCE": "source"},
		Strategy: validation.StrategyExact,
	}
}

func engines() (*validation.Engine, *correction.Engine) {
	v := validation.NewEngine(nil)
	return v, correction.NewEngine(nil, v)
}

func TestCorrectInvalidCellEndToEnd(t *testing.T) {
	ds := chestDataset([]string{"Usre3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()

	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)
	require.Equal(t, dataset.StatusInvalid, ds.Cell(0, 0).Status)

	table := correction.NewTable()
	_, err = table.Add("Usre3", "User3", correction.CategoryPlayer)
	require.NoError(t, err)

	delta := corrector.CheckCorrectable(ds, table, correction.Options{Validation: vopts()})
	require.Len(t, delta, 1)
	require.Equal(t, dataset.StatusCorrectable, ds.Cell(0, 0).Status)

	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCorrections)
	assert.Equal(t, 1, stats.CorrectedCells)
	assert.Equal(t, 1, stats.CorrectedRows)
	assert.Equal(t, 1, stats.Iterations)
	assert.True(t, stats.Converged)

	cell := ds.Cell(0, 0)
	assert.Equal(t, "User3", cell.Value)
	assert.Equal(t, dataset.StatusCorrected, cell.Status)
	assert.Equal(t, "Usre3", cell.Original)
}

func TestRecursiveCycleStopsAtIterationBound(t *testing.T) {
	ds := chestDataset([]string{"A", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	_, err = table.Add("A", "B", correction.CategoryGeneral)
	require.NoError(t, err)
	_, err = table.Add("B", "A", correction.CategoryGeneral)
	require.NoError(t, err)

	const bound = 10
	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid:   true,
		Recursive:     true,
		MaxIterations: bound,
		Validation:    vopts(),
	})
	require.NoError(t, err, "pathological 2-cycle must terminate, not hang")
	assert.Equal(t, bound, stats.Iterations)
	assert.False(t, stats.Converged)
	// Bound parity decides the final value; it must be one of the two.
	assert.Contains(t, []string{"A", "B"}, ds.Value(0, 0))
}

func TestRecursiveChainConverges(t *testing.T) {
	ds := chestDataset([]string{"Usr3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	// Two hops: Usr3 -> Usre3 -> User3; the second pass lands on a valid value.
	table := correction.NewTable()
	_, _ = table.Add("Usr3", "Usre3", correction.CategoryPlayer)
	_, _ = table.Add("Usre3", "User3", correction.CategoryPlayer)

	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Recursive:   true,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.True(t, stats.Converged)
	assert.LessOrEqual(t, stats.Iterations, 3)
	assert.Equal(t, "User3", ds.Value(0, 0))
	assert.Equal(t, dataset.StatusCorrected, ds.Cell(0, 0).Status)
	assert.Equal(t, "Usr3", ds.Cell(0, 0).Original)
}

func TestSelectionIsolation(t *testing.T) {
	// 5x2 dataset full of invalid cells; only (2,0) is in scope.
	ds := chestDataset(
		[]string{"Usre3", "Frost"},
		[]string{"Usre3", "Frost"},
		[]string{"Usre3", "Frost"},
		[]string{"Usre3", "Frost"},
		[]string{"Usre3", "Frost"},
	)
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	_, _ = table.Add("Usre3", "User3", correction.CategoryPlayer)
	_, _ = table.Add("Frost", "Forest", correction.CategorySource)

	before := ds.Snapshot()
	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Recursive:   true,
		Selection:   []dataset.CellRef{{Row: 2, Col: 0}},
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCorrections)
	assert.Equal(t, "User3", ds.Value(2, 0))
	assert.Equal(t, dataset.StatusCorrected, ds.Cell(2, 0).Status)

	for r := 0; r < ds.NumRows(); r++ {
		for c := 0; c < ds.NumCols(); c++ {
			if r == 2 && c == 0 {
				continue
			}
			assert.Equal(t, before.Value(r, c), ds.Value(r, c), "value outside selection changed at (%d,%d)", r, c)
			assert.Equal(t, before.Cell(r, c).Status, ds.Cell(r, c).Status, "status outside selection changed at (%d,%d)", r, c)
		}
	}
}

func TestEmptyRuleTableYieldsZeroStats(t *testing.T) {
	ds := chestDataset([]string{"Usre3", "Frost"}, []string{"nobody", "x"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	stats, err := corrector.Apply(context.Background(), ds, correction.NewTable(), lists, correction.Options{
		OnlyInvalid: true,
		Recursive:   true,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCorrections)
	assert.Equal(t, dataset.StatusInvalid, ds.Cell(0, 0).Status)
	assert.Equal(t, dataset.StatusInvalid, ds.Cell(1, 0).Status)
}

func TestRuleOrderingDeterminism(t *testing.T) {
	ds := chestDataset([]string{"Usre3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	first, _ := table.Add("Usre3", "User3", correction.CategoryPlayer)
	_, _ = table.Add("Usre3", "User99", correction.CategoryPlayer)

	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	require.Len(t, stats.Changes, 1)
	assert.Equal(t, first.ID, stats.Changes[0].RuleID, "lowest order wins")
	assert.Equal(t, "User3", ds.Value(0, 0))
}

func TestOnlyInvalidSkipsValidCells(t *testing.T) {
	// "User3" is valid; a general rule targeting it must not fire when
	// OnlyInvalid is set, and must fire when it is not.
	ds := chestDataset([]string{"User3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	_, _ = table.Add("User3", "Renamed", correction.CategoryGeneral)

	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCorrections)
	assert.Equal(t, "User3", ds.Value(0, 0))

	stats, err = corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: false,
		Validation:  vopts(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCorrections)
	assert.Equal(t, "Renamed", ds.Value(0, 0))
}

func TestGeneralRuleReachesUnboundColumn(t *testing.T) {
	ds := dataset.New([]dataset.Column{
		{Name: "PLAYER", Kind: dataset.KindString},
		{Name: "NOTES", Kind: dataset.KindString},
	})
	ds.AppendRow([]string{"User3", "typo"})
	lists := chestLists()
	_, corrector := engines()

	table := correction.NewTable()
	_, _ = table.Add("typo", "fixed", correction.CategoryGeneral)

	stats, err := corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		Validation: vopts(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCorrections)
	assert.Equal(t, "fixed", ds.Value(0, 1))
}

func TestCancellationLeavesPreviousPassState(t *testing.T) {
	ds := chestDataset([]string{"A", "Forest"})
	lists := chestLists()
	_, corrector := engines()

	table := correction.NewTable()
	_, _ = table.Add("A", "B", correction.CategoryGeneral)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := corrector.Apply(ctx, ds, table, lists, correction.Options{
		Recursive:  true,
		Validation: vopts(),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.TotalCorrections)
	assert.Equal(t, "A", ds.Value(0, 0), "no partial writes on cancellation")
}

func TestCheckCorrectableDemotesStaleMarking(t *testing.T) {
	ds := chestDataset([]string{"Usre3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	r, _ := table.Add("Usre3", "User3", correction.CategoryPlayer)
	corrector.CheckCorrectable(ds, table, correction.Options{Validation: vopts()})
	require.Equal(t, dataset.StatusCorrectable, ds.Cell(0, 0).Status)

	require.NoError(t, table.SetEnabled(r.ID, false))
	delta := corrector.CheckCorrectable(ds, table, correction.Options{Validation: vopts()})
	require.Len(t, delta, 1)
	assert.Equal(t, dataset.StatusInvalid, ds.Cell(0, 0).Status)
}

func TestProgressReportedPerPass(t *testing.T) {
	ds := chestDataset([]string{"Usre3", "Forest"})
	lists := chestLists()
	validator, corrector := engines()
	_, err := validator.Validate(ds, lists, vopts())
	require.NoError(t, err)

	table := correction.NewTable()
	_, _ = table.Add("Usre3", "User3", correction.CategoryPlayer)

	var calls [][2]int
	_, err = corrector.Apply(context.Background(), ds, table, lists, correction.Options{
		OnlyInvalid: true,
		Recursive:   true,
		Validation:  vopts(),
		Progress:    func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{1, correction.DefaultMaxIterations}, calls[0])
}
