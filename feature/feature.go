// Package feature labels and generates the regressors of the trend/seasonal
// decomposition model.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type FeatureType int

const (
	FeatureTypeGrowth FeatureType = iota
	FeatureTypeChangepoint
	FeatureTypeSeasonality
	FeatureTypeEvent
)

var featureTypeNames = map[FeatureType]string{
	FeatureTypeGrowth:      "growth",
	FeatureTypeChangepoint: "changepoint",
	FeatureTypeSeasonality: "seasonality",
	FeatureTypeEvent:       "event",
}

func (f FeatureType) String() string {
	if name, exists := featureTypeNames[f]; exists {
		return name
	}
	return "unknown_" + strconv.Itoa(int(f))
}

func (f FeatureType) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *FeatureType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for ft, n := range featureTypeNames {
		if strings.EqualFold(n, name) {
			*f = ft
			return nil
		}
	}
	return fmt.Errorf("%q, %w", name, ErrUnknownFeatureType)
}

type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// Decode rebuilds a feature from its type and decoded labels
func Decode(ft FeatureType, labels map[string]string) (Feature, error) {
	bytes, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}

	var feat Feature
	switch ft {
	case FeatureTypeGrowth:
		feat = new(Growth)
	case FeatureTypeChangepoint:
		feat = new(Changepoint)
	case FeatureTypeSeasonality:
		feat = new(Seasonality)
	case FeatureTypeEvent:
		feat = new(Event)
	default:
		return nil, ErrUnknownFeatureType
	}
	if err := json.Unmarshal(bytes, feat); err != nil {
		return nil, err
	}
	return feat, nil
}
