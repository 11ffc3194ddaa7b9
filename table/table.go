// Package table holds raw tabular datasets and turns them into clean univariate
// time series.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNoHeader = errors.New("csv input has no header row")

// DefaultTimeColumn is the timestamp column name used by stored datasets
const DefaultTimeColumn = "ds"

// Table is a raw dataset of named string columns. Rows may be ragged; missing cells
// read as empty strings.
type Table struct {
	Header []string
	Rows   [][]string

	idx map[string]int
}

// New creates a table from a header and its rows
func New(header []string, rows [][]string) *Table {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return &Table{
		Header: header,
		Rows:   rows,
		idx:    idx,
	}
}

// ReadCSV loads a table from comma separated input with a header row
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	return New(records[0], records[1:]), nil
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	i, exists := t.idx[strings.TrimSpace(name)]
	if !exists {
		return -1, false
	}
	return i, true
}

// Cell returns the value in the row at the column position, empty when the row is short
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}
