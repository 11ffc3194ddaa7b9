package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

// Seasonality is a single fourier term of a named periodic component
type Seasonality struct {
	Name        string        `json:"name"`
	FourierComp FourierComp   `json:"fourier_component"`
	Order       int           `json:"order"`
	Period      time.Duration `json:"period"`
}

func NewSeasonality(name string, fcomp FourierComp, order int, period time.Duration) *Seasonality {
	return &Seasonality{name, fcomp, order, period}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return s.Name, true
	case "fourier_component":
		return string(s.FourierComp), true
	case "order":
		return strconv.Itoa(s.Order), true
	case "period":
		return s.Period.String(), true
	}
	return "", false
}

func (s Seasonality) Type() FeatureType {
	return FeatureTypeSeasonality
}

func (s Seasonality) Decode() map[string]string {
	return map[string]string{
		"name":              s.Name,
		"fourier_component": string(s.FourierComp),
		"order":             strconv.Itoa(s.Order),
		"period":            s.Period.String(),
	}
}

func (s *Seasonality) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name        string      `json:"name"`
		FourierComp FourierComp `json:"fourier_component"`
		Order       string      `json:"order"`
		Period      string      `json:"period"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	order, err := strconv.Atoi(labelStr.Order)
	if err != nil {
		return err
	}
	period, err := time.ParseDuration(labelStr.Period)
	if err != nil {
		return err
	}
	s.Name = labelStr.Name
	s.FourierComp = labelStr.FourierComp
	s.Order = order
	s.Period = period
	return nil
}

// Generate evaluates the fourier term at each unix epoch second
func (s Seasonality) Generate(epoch []float64) []float64 {
	if s.Period <= 0 {
		return nil
	}
	omega := 2.0 * math.Pi * float64(s.Order) / s.Period.Seconds()
	res := make([]float64, len(epoch))
	for i, e := range epoch {
		rad := omega * e
		switch s.FourierComp {
		case FourierCompSin:
			res[i] = math.Sin(rad)
		case FourierCompCos:
			res[i] = math.Cos(rad)
		default:
			return nil
		}
	}
	return res
}

// FourierSet builds the sin and cos terms for orders 1 through orders of a period
func FourierSet(name string, period time.Duration, orders int, epoch []float64) *Set {
	s := NewSet()
	for order := 1; order <= orders; order++ {
		sinFeat := NewSeasonality(name, FourierCompSin, order, period)
		cosFeat := NewSeasonality(name, FourierCompCos, order, period)
		s.Set(sinFeat, sinFeat.Generate(epoch))
		s.Set(cosFeat, cosFeat.Generate(epoch))
	}
	return s
}
