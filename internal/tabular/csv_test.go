package tabular_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datamend-cli/internal/correction"
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/tabular"
)

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "chests.csv")
	content := "DATE,PLAYER,SOURCE,SCORE\n" +
		"2024-05-01,User1,Forest,275\n" +
		"2024-05-01,User2,Mine\n" + // short row, padded
		"2024-05-02,User3,Swamp,320\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	ds, err := tabular.ReadCSV(p)
	require.NoError(t, err)
	require.Equal(t, 3, ds.NumRows())
	require.Equal(t, 4, ds.NumCols())
	assert.Equal(t, "", ds.Value(1, 3), "short rows are padded")

	cols := ds.Columns()
	assert.Equal(t, dataset.KindDate, cols[0].Kind)
	assert.Equal(t, dataset.KindString, cols[1].Kind)
	assert.Equal(t, dataset.KindNumber, cols[3].Kind)
}

func TestReadCSVEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	ds, err := tabular.ReadCSV(p)
	require.NoError(t, err)
	assert.Zero(t, ds.NumRows())
	assert.Zero(t, ds.NumCols())
}

func TestWriteCSVRoundTripPreservesRowOrder(t *testing.T) {
	ds := dataset.New([]dataset.Column{
		{Name: "PLAYER", Kind: dataset.KindString},
		{Name: "SOURCE", Kind: dataset.KindString},
	})
	ds.AppendRow([]string{"User2", "Mine"})
	ds.AppendRow([]string{"User1", "Forest"})

	p := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tabular.WriteCSV(p, ds, false))

	again, err := tabular.ReadCSV(p)
	require.NoError(t, err)
	assert.Equal(t, "User2", again.Value(0, 0), "import order survives the round trip")
	assert.Equal(t, "User1", again.Value(1, 0))
}

func TestWriteCSVWithStatusColumns(t *testing.T) {
	ds := dataset.New([]dataset.Column{
		{Name: "PLAYER", Kind: dataset.KindString},
		{Name: "SOURCE", Kind: dataset.KindString},
	})
	ds.AppendRow([]string{"User1", "Frost"})
	require.NoError(t, ds.SetStatus(0, 1, dataset.StatusInvalid))

	p := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tabular.WriteCSV(p, ds, true))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "PLAYER,SOURCE,SOURCE_status\nUser1,Frost,invalid\n", string(b))
}

func TestWriteAudit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "audit.csv")
	changes := []correction.Change{
		{Row: 2, Col: 0, Column: "PLAYER", From: "Usre3", To: "User3", RuleID: "abc"},
	}
	require.NoError(t, tabular.WriteAudit(p, changes))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "Row,Column,Original,Corrected,RuleID\n2,PLAYER,Usre3,User3,abc\n", string(b))
}

func TestReadTSVDelimiterSniff(t *testing.T) {
	p := filepath.Join(t.TempDir(), "chests.tsv")
	require.NoError(t, os.WriteFile(p, []byte("PLAYER\tSOURCE\nUser1\tForest\n"), 0o644))
	ds, err := tabular.ReadCSV(p)
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumCols())
	assert.Equal(t, "Forest", ds.Value(0, 1))
}
