package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/status"
)

func TestReconcilePrecedence(t *testing.T) {
	cases := []struct {
		a, b, want dataset.Status
	}{
		{dataset.StatusValid, dataset.StatusCorrected, dataset.StatusCorrected},
		{dataset.StatusCorrected, dataset.StatusCorrectable, dataset.StatusCorrected},
		{dataset.StatusCorrectable, dataset.StatusInvalid, dataset.StatusCorrectable},
		{dataset.StatusInvalid, dataset.StatusValid, dataset.StatusInvalid},
		{dataset.StatusValid, dataset.StatusValid, dataset.StatusValid},
		{dataset.StatusNone, dataset.StatusValid, dataset.StatusValid},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, status.Reconcile(c.a, c.b), "%v vs %v", c.a, c.b)
		assert.Equal(t, c.want, status.Reconcile(c.b, c.a), "reconcile is symmetric")
	}
}

func TestSummarizeCountsBoundColumnsOnly(t *testing.T) {
	ds := dataset.New([]dataset.Column{
		{Name: "PLAYER", Kind: dataset.KindString},
		{Name: "NOTES", Kind: dataset.KindString},
	})
	ds.AppendRow([]string{"User1", "a"})
	ds.AppendRow([]string{"Usre3", "b"})
	ds.AppendRow([]string{"Usre4", "c"})
	require.NoError(t, ds.SetStatus(0, 0, dataset.StatusValid))
	require.NoError(t, ds.SetStatus(1, 0, dataset.StatusCorrectable))
	require.NoError(t, ds.SetStatus(2, 0, dataset.StatusCorrected))
	// NOTES has no validation list; any stray status there is out of scope.
	require.NoError(t, ds.SetStatus(0, 1, dataset.StatusInvalid))

	s := status.Summarize(ds, map[string]string{"PLAYER": "player"})
	assert.Equal(t, status.Summary{Total: 3, Valid: 1, Correctable: 1, Corrected: 1}, s)
}

func TestSummarizeMissingBoundColumn(t *testing.T) {
	ds := dataset.New([]dataset.Column{{Name: "PLAYER", Kind: dataset.KindString}})
	ds.AppendRow([]string{"User1"})
	s := status.Summarize(ds, map[string]string{"PLAYER": "player", "SOURCE": "source"})
	assert.Equal(t, 1, s.Total, "bindings without a matching column contribute nothing")
}
