package forecaster_test

import (
	"fmt"
	"time"

	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/timedataset"
)

func ExampleNew() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t := timedataset.GenerateTFrom(start, 100, 24*time.Hour)
	y := timedataset.GenerateLinearY(100, 1.0, 1.0)
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		panic(err)
	}

	method, err := forecaster.ParseMethod("trend-seasonal")
	if err != nil {
		panic(err)
	}
	f, err := forecaster.New(method, nil)
	if err != nil {
		panic(err)
	}
	if err := f.Fit(td); err != nil {
		panic(err)
	}
	res, err := f.Predict(3)
	if err != nil {
		panic(err)
	}
	for _, r := range res.Rows {
		fmt.Printf("%s %.1f\n", r.T.Format("2006-01-02"), r.Point)
	}
	// Output:
	// 2024-04-10 101.0
	// 2024-04-11 102.0
	// 2024-04-12 103.0
}
