// Package labels loads and resolves the class-index label table.
package labels

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Unknown is returned for any class index the table cannot resolve.
const Unknown = "unknown"

// Table is an ordered, read-only label list addressed by class index.
type Table struct {
	entries []string
}

// New builds a table from an ordered label list.
func New(entries []string) Table {
	return Table{entries: entries}
}

// Load reads one label per line from path. Blank lines are kept so indices
// stay aligned with the model's class ids; surrounding whitespace is trimmed.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open label table %q: %w", path, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entries = append(entries, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("read label table %q: %w", path, err)
	}

	return Table{entries: entries}, nil
}

// Resolve maps a class index to its label, or Unknown when out of range.
func (t Table) Resolve(classID int) string {
	if classID < 0 || classID >= len(t.entries) {
		return Unknown
	}
	if t.entries[classID] == "" {
		return Unknown
	}
	return t.entries[classID]
}

// Len reports the number of loaded labels.
func (t Table) Len() int {
	return len(t.entries)
}
