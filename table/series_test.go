package table

import (
	"strings"
	"testing"
	"time"

	"github.com/neurolytix/go-forecaster/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	testData := map[string]struct {
		csv       string
		target    string
		expectedT []time.Time
		expectedY []float64
		err       error
	}{
		"sorted clean": {
			csv:    "ds,sales\n2024-01-01,1\n2024-01-02,2\n",
			target: "sales",
			expectedT: []time.Time{
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			},
			expectedY: []float64{1, 2},
		},
		"drops bad rows and sorts": {
			csv:    "ds,sales\n2024-01-03,3\nnot a date,9\n2024-01-01,abc\n2024-01-02,2\n2024-01-01 12:00:00,1.5\n",
			target: "sales",
			expectedT: []time.Time{
				time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			},
			expectedY: []float64{1.5, 2, 3},
		},
		"duplicate timestamps keep last": {
			csv:    "ds,sales\n2024-01-01,1\n2024-01-01,5\n2024-01-02,2\n",
			target: "sales",
			expectedT: []time.Time{
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			},
			expectedY: []float64{5, 2},
		},
		"missing target column": {
			csv:    "ds,sales\n2024-01-01,1\n",
			target: "revenue",
			err:    errs.ErrMissingColumn,
		},
		"all rows invalid": {
			csv:    "ds,sales\n2024-01-01,\nbad,1\n",
			target: "sales",
			err:    errs.ErrEmptySeries,
		},
		"header only": {
			csv:    "ds,sales\n",
			target: "sales",
			err:    errs.ErrEmptySeries,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			tbl, err := ReadCSV(strings.NewReader(td.csv))
			require.NoError(t, err)

			ds, err := tbl.Series(DefaultTimeColumn, td.target)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expectedT, ds.T)
			assert.Equal(t, td.expectedY, ds.Y)
		})
	}
}

func TestMissingTimeColumn(t *testing.T) {
	tbl := New([]string{"date", "sales"}, [][]string{{"2024-01-01", "1"}})
	_, err := tbl.Series(DefaultTimeColumn, "sales")
	assert.ErrorIs(t, err, errs.ErrMissingColumn)
}

func TestParseTime(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected time.Time
		ok       bool
	}{
		"rfc3339":   {"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		"datetime":  {"2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		"date":      {"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		"us date":   {"03/01/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		"unix":      {"86400", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), true},
		"empty":     {"", time.Time{}, false},
		"free text": {"yesterday", time.Time{}, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, ok := ParseTime(td.input)
			assert.Equal(t, td.ok, ok)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestParseValue(t *testing.T) {
	_, ok := ParseValue("NaN")
	assert.False(t, ok)
	_, ok = ParseValue("")
	assert.False(t, ok)
	v, ok := ParseValue(" 3.5 ")
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)
}

func TestReadCSV(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	tbl, err := ReadCSV(strings.NewReader("ds,a,b\n2024-01-01,1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	idx, ok := tbl.ColumnIndex("b")
	require.True(t, ok)
	assert.Equal(t, "", tbl.Cell(0, idx))
}
