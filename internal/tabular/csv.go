// Package tabular is the file boundary: it reads CSV logs into a dataset
// and writes datasets, statuses and audit trails back out.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/datamend-cli/internal/correction"
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
)

// kindSampleRows caps how many rows the reader inspects for column kinds.
const kindSampleRows = 100

// ReadCSV loads a CSV (or TSV) file into a dataset. The first row is the
// header. Short rows are padded with empty cells so the table stays
// rectangular; empty cells are preserved and left to validation to flag.
func ReadCSV(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(path)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.New(nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	kinds := make([]columnKindAcc, len(header))
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
		if len(rows) <= kindSampleRows {
			for i := range header {
				kinds[i].observe(row[i])
			}
		}
	}

	cols := make([]dataset.Column, len(header))
	for i, name := range header {
		cols[i] = dataset.Column{Name: strings.TrimSpace(name), Kind: kinds[i].kind()}
	}
	ds := dataset.New(cols)
	for _, row := range rows {
		ds.AppendRow(row)
	}
	return ds, nil
}

// WriteCSV writes the dataset to path. With withStatus set, one extra
// "<column>_status" column per status-bearing column is appended, holding
// the reconciled four-state tag per cell.
func WriteCSV(path string, ds *dataset.Dataset, withStatus bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := ds.Columns()
	statusCols := statusColumns(ds)

	header := make([]string, 0, len(cols)+len(statusCols))
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if withStatus {
		for _, sc := range statusCols {
			header = append(header, cols[sc].Name+"_status")
		}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r := 0; r < ds.NumRows(); r++ {
		row := ds.Row(r)
		if withStatus {
			for _, sc := range statusCols {
				row = append(row, ds.Cell(r, sc).Status.String())
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteAudit writes the per-cell change records of a correction run as a
// CSV audit trail (row, column, original, corrected, rule id).
func WriteAudit(path string, changes []correction.Change) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audit: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Row", "Column", "Original", "Corrected", "RuleID"}); err != nil {
		return fmt.Errorf("write audit header: %w", err)
	}
	for _, ch := range changes {
		rec := []string{strconv.Itoa(ch.Row), ch.Column, ch.From, ch.To, ch.RuleID}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write audit row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// statusColumns returns the indices of columns that carry at least one
// status entry, ascending.
func statusColumns(ds *dataset.Dataset) []int {
	seen := make(map[int]bool)
	var out []int
	for _, ref := range ds.StatusRefs() {
		if !seen[ref.Col] {
			seen[ref.Col] = true
			out = append(out, ref.Col)
		}
	}
	// StatusRefs is row-major; restore column order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

type columnKindAcc struct {
	num, date, text int
}

func (a *columnKindAcc) observe(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		a.num++
		return
	}
	if parseTimeMaybe(v) {
		a.date++
		return
	}
	a.text++
}

// kind picks the predominant parsed type, defaulting to string.
func (a *columnKindAcc) kind() dataset.Kind {
	if a.num > a.date && a.num > a.text {
		return dataset.KindNumber
	}
	if a.date > a.text && a.date > 0 {
		return dataset.KindDate
	}
	return dataset.KindString
}

func parseTimeMaybe(s string) bool {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}
