package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSetPadding(t *testing.T) {
	testData := map[string]struct {
		data     []float64
		rows     int
		linear   []float64
		incoming []float64
	}{
		"longer series pads existing": {
			data:     []float64{1, 2, 3, 4, 5, 6},
			rows:     6,
			linear:   []float64{0.1, 0.2, 0.3, 0.4, 0, 0},
			incoming: []float64{1, 2, 3, 4, 5, 6},
		},
		"shorter series is padded": {
			data:     []float64{1, 2},
			rows:     4,
			linear:   []float64{0.1, 0.2, 0.3, 0.4},
			incoming: []float64{1, 2, 0, 0},
		},
		"same length": {
			data:     []float64{5, 6, 7, 8},
			rows:     4,
			linear:   []float64{0.1, 0.2, 0.3, 0.4},
			incoming: []float64{5, 6, 7, 8},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := NewSet().Set(Linear(), []float64{0.1, 0.2, 0.3, 0.4})
			s.Set(NewEvent("promo"), td.data)

			assert.Equal(t, 2, s.Len())
			assert.Equal(t, td.rows, s.Rows())

			vals, exists := s.Get(Linear())
			require.True(t, exists)
			assert.Equal(t, td.linear, vals)

			vals, exists = s.Get(NewEvent("promo"))
			require.True(t, exists)
			assert.Equal(t, td.incoming, vals)
		})
	}
}

func TestSetOverride(t *testing.T) {
	s := NewSet().
		Set(Intercept(), []float64{1, 1, 1}).
		Set(Intercept(), []float64{2, 2, 2})

	assert.Equal(t, 1, s.Len())
	vals, exists := s.Get(Intercept())
	require.True(t, exists)
	assert.Equal(t, []float64{2, 2, 2}, vals)
}

func TestSetDel(t *testing.T) {
	testData := map[string]struct {
		del    Feature
		labels []string
		rows   int
	}{
		"unknown feature": {
			del:    NewEvent("missing"),
			labels: []string{"growth_linear", "event_promo"},
			rows:   3,
		},
		"existing feature": {
			del:    Linear(),
			labels: []string{"event_promo"},
			rows:   3,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := NewSet().
				Set(Linear(), []float64{0, 0.5, 1}).
				Set(NewEvent("promo"), []float64{0, 1, 0})
			s.Del(td.del)

			var labels []string
			for _, f := range s.Labels().Labels() {
				labels = append(labels, f.String())
			}
			assert.Equal(t, td.labels, labels)
			assert.Equal(t, td.rows, s.Rows())
		})
	}
}

func TestSetDelLast(t *testing.T) {
	s := NewSet().Set(Linear(), []float64{0, 0.5, 1})
	s.Del(Linear())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Rows())
	assert.Nil(t, s.Matrix(true))
}

func TestSetUpdate(t *testing.T) {
	epoch := []float64{0, 21600, 43200, 64800}
	seas := FourierSet("daily", 24*time.Hour, 2, epoch)

	s := NewSet().Set(Linear(), []float64{0, 0.25, 0.5, 0.75})
	s.Update(seas)
	s.Update(nil)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 4, s.Rows())

	vals, exists := s.Get(NewSeasonality("daily", FourierCompSin, 1, 24*time.Hour))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{0, 1, 0, -1}, vals, 1e-9)

	vals, exists = s.Get(NewSeasonality("daily", FourierCompCos, 2, 24*time.Hour))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{1, -1, 1, -1}, vals, 1e-9)

	idx, exists := s.Labels().Index(Linear())
	require.True(t, exists)
	assert.Equal(t, 0, idx)
}

func TestMatrix(t *testing.T) {
	testData := map[string]struct {
		init      *Set
		intercept bool
		expected  *mat.Dense
	}{
		"nil": {nil, true, nil},
		"initialized empty": {
			init:      &Set{},
			intercept: true,
			expected:  nil,
		},
		"with intercept": {
			init: NewSet().
				Set(Linear(), []float64{0, 0.5, 1}).
				Set(NewEvent("promo"), []float64{0, 1, 0}),
			intercept: true,
			expected: mat.NewDense(3, 3, []float64{
				1, 0, 0,
				1, 0.5, 1,
				1, 1, 0,
			}),
		},
		"without intercept": {
			init:      NewSet().Set(Linear(), []float64{0, 0.5, 1}),
			intercept: false,
			expected:  mat.NewDense(3, 1, []float64{0, 0.5, 1}),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.init.Matrix(td.intercept)
			if td.expected == nil {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.True(t, mat.Equal(td.expected, res))
		})
	}
}

func TestRemoveZeroOnlyFeatures(t *testing.T) {
	testData := map[string]struct {
		features map[string][]float64
		expected []string
	}{
		"keeps non zero": {
			features: map[string][]float64{
				"promo":  {0, 1, 0},
				"launch": {2, 0, 0},
			},
			expected: []string{"event_launch", "event_promo"},
		},
		"drops all zeros": {
			features: map[string][]float64{
				"promo":   {0, 1, 0},
				"closed":  {0, 0, 0},
				"holiday": {0, 0, 0},
			},
			expected: []string{"event_promo"},
		},
		"everything dropped": {
			features: map[string][]float64{
				"closed": {0, 0, 0},
			},
			expected: nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := NewSet()
			for _, n := range []string{"closed", "holiday", "launch", "promo"} {
				if data, exists := td.features[n]; exists {
					s.Set(NewEvent(n), data)
				}
			}
			s.RemoveZeroOnlyFeatures()

			var labels []string
			for _, f := range s.Labels().Labels() {
				labels = append(labels, f.String())
			}
			assert.Equal(t, td.expected, labels)
		})
	}
}
