package forecaster

import (
	"fmt"
	"strings"

	"github.com/neurolytix/go-forecaster/errs"
)

// Method selects one of the supported forecasting strategies
type Method int

const (
	TrendSeasonal Method = iota + 1
	SequenceResidual
	Hybrid
	Ensemble
)

var methodNames = map[Method]string{
	TrendSeasonal:    "trend-seasonal",
	SequenceResidual: "sequence-residual",
	Hybrid:           "hybrid",
	Ensemble:         "ensemble",
}

// legacy selector names accepted for stored forecasts and existing callers
var methodAliases = map[string]Method{
	"prophet":     TrendSeasonal,
	"lstm":        SequenceResidual,
	"deep_hybrid": Hybrid,
}

// Methods returns every method in declaration order
func Methods() []Method {
	return []Method{TrendSeasonal, SequenceResidual, Hybrid, Ensemble}
}

func (m Method) String() string {
	if name, exists := methodNames[m]; exists {
		return name
	}
	return fmt.Sprintf("unknown_%d", int(m))
}

// Valid reports whether m is one of the declared methods
func (m Method) Valid() bool {
	_, exists := methodNames[m]
	return exists
}

// ParseMethod maps a selector onto a method. Unknown selectors are a configuration
// error rather than falling back to a default.
func ParseMethod(s string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for m, name := range methodNames {
		if name == key {
			return m, nil
		}
	}
	if m, exists := methodAliases[key]; exists {
		return m, nil
	}
	return 0, fmt.Errorf("unknown method %q, %w", s, errs.ErrConfiguration)
}

func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("method %d, %w", int(m), errs.ErrConfiguration)
	}
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(data []byte) error {
	parsed, err := ParseMethod(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
