package validation

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/datamend-cli/internal/utils"
)

// List is the set of known-good values for one category. Entry order is
// preserved for export; lookups go through the index maps.
type List struct {
	category string
	values   []string
	exact    map[string]struct{}
	folded   map[string]int
}

// NewList creates an empty list for category.
func NewList(category string) *List {
	return &List{
		category: category,
		exact:    make(map[string]struct{}),
		folded:   make(map[string]int),
	}
}

// Category returns the category this list validates.
func (l *List) Category() string { return l.category }

// Values returns the entries in insertion order.
func (l *List) Values() []string { return append([]string(nil), l.values...) }

// Len reports the number of entries.
func (l *List) Len() int { return len(l.values) }

// Add inserts value, deduplicating on the exact form so a list can carry
// distinct casings of the same name when exact matching is in effect. The
// folded index keeps a count per casing for case-insensitive lookups.
// Returns false when the value was already present or empty.
func (l *List) Add(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	if _, dup := l.exact[v]; dup {
		return false
	}
	l.values = append(l.values, v)
	l.exact[v] = struct{}{}
	l.folded[strings.ToLower(v)]++
	return true
}

// Remove deletes value (exact form). Returns false when absent.
func (l *List) Remove(value string) bool {
	if _, ok := l.exact[value]; !ok {
		return false
	}
	delete(l.exact, value)
	key := strings.ToLower(value)
	if l.folded[key]--; l.folded[key] <= 0 {
		delete(l.folded, key)
	}
	for i, v := range l.values {
		if v == value {
			l.values = append(l.values[:i], l.values[i+1:]...)
			break
		}
	}
	return true
}

// Matches reports whether value matches any list member under the given
// strategy. In fuzzy mode the best similarity across all members decides;
// ties at the maximum all count as a match, fuzzy mode only ever answers
// valid or invalid.
func (l *List) Matches(value string, strategy Strategy, fuzzyThreshold float64) bool {
	switch strategy {
	case StrategyCaseInsensitive:
		_, ok := l.folded[strings.ToLower(value)]
		return ok
	case StrategyFuzzy:
		if _, ok := l.exact[value]; ok {
			return true
		}
		best := 0.0
		for _, member := range l.values {
			if s := Similarity(value, member); s > best {
				best = s
			}
		}
		return best >= fuzzyThreshold && len(l.values) > 0
	default:
		_, ok := l.exact[value]
		return ok
	}
}

// ListStore owns one List per category.
type ListStore struct {
	lists map[string]*List
}

// NewListStore creates an empty store.
func NewListStore() *ListStore {
	return &ListStore{lists: make(map[string]*List)}
}

// List returns the list for category, or nil when none is configured.
func (s *ListStore) List(category string) *List { return s.lists[category] }

// Ensure returns the list for category, creating it if needed.
func (s *ListStore) Ensure(category string) *List {
	if l, ok := s.lists[category]; ok {
		return l
	}
	l := NewList(category)
	s.lists[category] = l
	return l
}

// Categories returns the configured category names, sorted.
func (s *ListStore) Categories() []string {
	out := make([]string, 0, len(s.lists))
	for c := range s.lists {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LoadDir reads every "<category>.txt" file in dir into the store. The file
// format is one entry per line; blank lines and surrounding whitespace are
// ignored. A missing directory yields an empty store, not an error.
func LoadDir(dir string) (*ListStore, error) {
	store := NewListStore()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read lists dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		category := strings.TrimSuffix(e.Name(), ".txt")
		if err := store.loadFile(category, filepath.Join(dir, e.Name())); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *ListStore) loadFile(category, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open list %s: %w", category, err)
	}
	defer f.Close()
	list := s.Ensure(category)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		list.Add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read list %s: %w", category, err)
	}
	return nil
}

// SaveDir writes every list back to dir as "<category>.txt", one entry per
// line, creating the directory if needed.
func (s *ListStore) SaveDir(dir string) error {
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure lists dir: %w", err)
	}
	for _, category := range s.Categories() {
		list := s.lists[category]
		data := strings.Join(list.values, "\n")
		if len(list.values) > 0 {
			data += "\n"
		}
		path := filepath.Join(dir, category+".txt")
		if err := utils.SafeWriteFile(path, []byte(data)); err != nil {
			return fmt.Errorf("write list %s: %w", category, err)
		}
	}
	return nil
}
