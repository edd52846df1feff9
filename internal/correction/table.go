package correction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datamend-cli/internal/utils"
)

// ErrEmptyFrom is returned when a rule is created with an empty from-value.
// Malformed rules are rejected at creation time, never at apply time.
var ErrEmptyFrom = errors.New("rule from-value must not be empty")

// ErrRuleNotFound is returned by table operations addressing an unknown rule id.
var ErrRuleNotFound = errors.New("rule not found")

// RowError describes one malformed row encountered during import. The row is
// skipped and counted; the rest of the file still loads.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

// ImportMode selects how imported rules combine with existing ones.
type ImportMode int

const (
	// ImportReplace clears the table before loading.
	ImportReplace ImportMode = iota
	// ImportAppend keeps existing rules; new rules rank after the current maximum.
	ImportAppend
)

// ImportResult summarizes one rule-file import.
type ImportResult struct {
	Loaded  int
	Skipped int
	Errors  []RowError
}

// Table is the ordered correction rule table. Not safe for concurrent use.
type Table struct {
	rules []*Rule
	byID  map[string]*Rule
}

// NewTable creates an empty rule table.
func NewTable() *Table {
	return &Table{byID: make(map[string]*Rule)}
}

// Len reports the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns the rules by ascending order.
func (t *Table) Rules() []*Rule {
	out := make([]*Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Get returns the rule with the given id.
func (t *Table) Get(id string) (*Rule, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// Add creates an enabled rule ranked after all existing rules.
func (t *Table) Add(from, to string, category Category) (*Rule, error) {
	if strings.TrimSpace(from) == "" {
		return nil, ErrEmptyFrom
	}
	r := &Rule{
		ID:        uuid.NewString(),
		FromValue: from,
		ToValue:   to,
		Category:  category,
		Enabled:   true,
		Order:     len(t.rules),
	}
	t.rules = append(t.rules, r)
	t.byID[r.ID] = r
	return r, nil
}

// Update rewrites the from/to/category of an existing rule.
func (t *Table) Update(id, from, to string, category Category) error {
	r, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("update rule %s: %w", id, ErrRuleNotFound)
	}
	if strings.TrimSpace(from) == "" {
		return ErrEmptyFrom
	}
	r.FromValue = from
	r.ToValue = to
	r.Category = category
	return nil
}

// Delete removes a rule and renormalizes the remaining orders.
func (t *Table) Delete(id string) error {
	r, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("delete rule %s: %w", id, ErrRuleNotFound)
	}
	delete(t.byID, id)
	for i, cur := range t.rules {
		if cur == r {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			break
		}
	}
	t.normalize()
	return nil
}

// Reorder moves a rule to newOrder and renormalizes so orders stay dense and
// unique. newOrder is clamped to the valid range.
func (t *Table) Reorder(id string, newOrder int) error {
	r, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("reorder rule %s: %w", id, ErrRuleNotFound)
	}
	for i, cur := range t.rules {
		if cur == r {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			break
		}
	}
	if newOrder < 0 {
		newOrder = 0
	}
	if newOrder > len(t.rules) {
		newOrder = len(t.rules)
	}
	t.rules = append(t.rules[:newOrder], append([]*Rule{r}, t.rules[newOrder:]...)...)
	// Assign ranks from slice positions directly; normalize would sort by
	// the stale Order fields and undo the move.
	for i, cur := range t.rules {
		cur.Order = i
	}
	return nil
}

// SetEnabled toggles a rule without changing its rank.
func (t *Table) SetEnabled(id string, enabled bool) error {
	r, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("enable rule %s: %w", id, ErrRuleNotFound)
	}
	r.Enabled = enabled
	return nil
}

// FindMatches returns every enabled rule whose category covers the given
// category and whose from-value equals value literally (rule lookup is never
// fuzzy), ordered by ascending rank. The first element is the rule a
// correction pass applies.
func (t *Table) FindMatches(value string, category Category) []*Rule {
	var out []*Rule
	for _, r := range t.rules {
		if r.Enabled && r.AppliesTo(category) && r.FromValue == value {
			out = append(out, r)
		}
	}
	return out
}

// normalize reassigns dense ascending orders starting at 0. Called after
// every mutation that can open a gap; also the self-heal path for a table
// loaded with duplicate or gapped orders.
func (t *Table) normalize() {
	sort.SliceStable(t.rules, func(i, j int) bool { return t.rules[i].Order < t.rules[j].Order })
	for i, r := range t.rules {
		r.Order = i
	}
}

const rulesHeader = "From,To,Category,Enabled"

// Import reads rules in the delimited From,To,Category,Enabled format.
// Malformed rows are skipped, counted and reported per row; the rest of the
// file still loads.
func (t *Table) Import(r io.Reader, mode ImportMode) (ImportResult, error) {
	if mode == ImportReplace {
		t.rules = nil
		t.byID = make(map[string]*Rule)
	}
	var res ImportResult
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	line := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// A malformed row (stray quote and the like) is skipped and
			// counted; the rest of the file still loads. The reader
			// resumes at the next line on its own.
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line++
				res.Skipped++
				res.Errors = append(res.Errors, RowError{Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return res, fmt.Errorf("read rules row %d: %w", line+1, err)
		}
		line++
		if line == 1 && isRulesHeader(rec) {
			continue
		}
		if len(rec) < 4 {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Line: line, Reason: fmt.Sprintf("expected 4 fields, got %d", len(rec))})
			continue
		}
		category, err := ParseCategory(rec[2])
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		enabled, err := parseBool(rec[3])
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rule, err := t.Add(rec[0], rec[1], category)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rule.Enabled = enabled
		res.Loaded++
	}
	return res, nil
}

// Export writes the table in the same delimited format Import reads.
func (t *Table) Export(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(rulesHeader, ",")); err != nil {
		return fmt.Errorf("write rules header: %w", err)
	}
	for _, r := range t.rules {
		enabled := "false"
		if r.Enabled {
			enabled = "true"
		}
		if err := cw.Write([]string{r.FromValue, r.ToValue, string(r.Category), enabled}); err != nil {
			return fmt.Errorf("write rule: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a rule file from disk into a fresh table. A missing file yields
// an empty table so a first run works without setup.
func Load(path string) (*Table, ImportResult, error) {
	t := NewTable()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, ImportResult{}, nil
		}
		return nil, ImportResult{}, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	res, err := t.Import(f, ImportReplace)
	if err != nil {
		return nil, res, err
	}
	return t, res, nil
}

// Save writes the table to path atomically.
func (t *Table) Save(path string) error {
	var b strings.Builder
	if err := t.Export(&b); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, []byte(b.String())); err != nil {
		return fmt.Errorf("save rules: %w", err)
	}
	return nil
}

func isRulesHeader(rec []string) bool {
	return len(rec) >= 4 && strings.EqualFold(strings.TrimSpace(rec[0]), "from") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "to")
}

// parseBool accepts the literal true/false spellings and 1/0 used by the
// rule file format.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid enabled flag %q", s)
	}
}
