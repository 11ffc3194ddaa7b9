package feature

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalityString(t *testing.T) {
	feat := NewSeasonality("weekly", FourierCompCos, 2, 7*24*time.Hour)
	expected := "seas_weekly_02_cos"
	assert.Equal(t, expected, feat.String())
}

func TestSeasonalityGet(t *testing.T) {
	feat := NewSeasonality("weekly", FourierCompCos, 2, 7*24*time.Hour)

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown": {
			label: "unknown",
		},
		"capitalized": {
			label:     "NAME",
			expVal:    "weekly",
			expExists: true,
		},
		"fourier component": {
			label:     "fourier_component",
			expVal:    "cos",
			expExists: true,
		},
		"order": {
			label:     "order",
			expVal:    "2",
			expExists: true,
		},
		"period": {
			label:     "period",
			expVal:    "168h0m0s",
			expExists: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestSeasonalityUnmarshalJSON(t *testing.T) {
	feat := NewSeasonality("daily", FourierCompSin, 3, 24*time.Hour)
	out, err := json.Marshal(feat.Decode())
	require.NoError(t, err)

	var nextFeat Seasonality
	require.NoError(t, json.Unmarshal(out, &nextFeat))
	assert.Equal(t, feat, &nextFeat)
}

func TestSeasonalityGenerate(t *testing.T) {
	period := 24 * time.Hour
	epoch := []float64{0, 6 * 3600, 12 * 3600, 18 * 3600}

	testData := map[string]struct {
		feat     *Seasonality
		expected []float64
	}{
		"sin order 1": {
			feat:     NewSeasonality("daily", FourierCompSin, 1, period),
			expected: []float64{0, 1, 0, -1},
		},
		"cos order 1": {
			feat:     NewSeasonality("daily", FourierCompCos, 1, period),
			expected: []float64{1, 0, -1, 0},
		},
		"cos order 2": {
			feat:     NewSeasonality("daily", FourierCompCos, 2, period),
			expected: []float64{1, -1, 1, -1},
		},
		"no period": {
			feat:     NewSeasonality("daily", FourierCompCos, 2, 0),
			expected: nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.feat.Generate(epoch)
			if td.expected == nil {
				assert.Nil(t, res)
				return
			}
			assert.InDeltaSlice(t, td.expected, res, 1e-9)
		})
	}
}

func TestFourierSet(t *testing.T) {
	epoch := []float64{0, 3600, 7200}
	s := FourierSet("daily", 24*time.Hour, 3, epoch)
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, 3, s.Rows())

	vals, exists := s.Get(NewSeasonality("daily", FourierCompSin, 2, 24*time.Hour))
	require.True(t, exists)
	assert.InDelta(t, math.Sin(2*math.Pi*2*3600/86400), vals[1], 1e-9)
}
