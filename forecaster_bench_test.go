package forecaster

import (
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/neurolytix/go-forecaster/timedataset"
	"github.com/pkg/profile"
)

var benchPredictRes *Forecast

func setupBench(n int) *timedataset.TimeDataset {
	ts := timedataset.GenerateTFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n, time.Hour)
	y := timedataset.GenerateWaveY(ts, 5.0, 86400.0, 1.0, 0).
		Add(timedataset.GenerateWaveY(ts, 2.0, 86400.0, 3.0, 0)).
		Add(timedataset.GenerateLinearY(n, 40.0, 0.01)).
		Add(timedataset.GenerateNoise(n, 1.0, 1))
	td, err := timedataset.NewUnivariateDataset(ts, y)
	if err != nil {
		panic(err)
	}
	return td
}

func BenchmarkHybridFit(b *testing.B) {
	td := setupBench(24 * 14)
	opt := NewDefaultOptions()
	opt.Sequence.Epochs = 10

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		f, err := NewHybrid(opt)
		if err != nil {
			panic(err)
		}
		if err := f.Fit(td); err != nil {
			panic(err)
		}
	}
}

func BenchmarkTrainToModel(b *testing.B) {
	td := setupBench(24 * 60)

	var f *TrendSeasonalForecaster
	var err error

	b.ResetTimer()
	for b.Loop() {
		f, err = NewTrendSeasonal(nil)
		if err != nil {
			panic(err)
		}
		if err := f.Fit(td); err != nil {
			panic(err)
		}
	}

	m, err := f.Model()
	if err != nil {
		panic(err)
	}

	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("benchmark_model.json", bytes, 0o644); err != nil {
		panic(err)
	}
}

func BenchmarkPredictFromModel(b *testing.B) {
	bytes, err := os.ReadFile("benchmark_model.json")
	if err != nil {
		b.Skip("run BenchmarkTrainToModel first")
	}

	var model Model
	if err := json.Unmarshal(bytes, &model); err != nil {
		panic(err)
	}
	f, err := NewFromModel(model)
	if err != nil {
		panic(err)
	}

	b.ResetTimer()
	for b.Loop() {
		benchPredictRes, err = f.Predict(24)
		if err != nil {
			panic(err)
		}
	}
}
