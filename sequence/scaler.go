package sequence

// Scaler min-max normalizes values into [0, 1] using the range seen at fit time. It is
// a value type so a fitted model never shares normalization state with another.
type Scaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewScaler captures the range of values. An empty input yields a zero scaler.
func NewScaler(values []float64) Scaler {
	if len(values) == 0 {
		return Scaler{}
	}
	s := Scaler{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

func (s Scaler) Range() float64 {
	return s.Max - s.Min
}

// Transform maps v onto the unit range. Every value maps to 0 for a zero range.
func (s Scaler) Transform(v float64) float64 {
	r := s.Range()
	if r == 0 {
		return 0
	}
	return (v - s.Min) / r
}

// Inverse maps a normalized value back to original units
func (s Scaler) Inverse(v float64) float64 {
	return s.Min + v*s.Range()
}

func (s Scaler) TransformAll(values []float64) []float64 {
	res := make([]float64, len(values))
	for i, v := range values {
		res[i] = s.Transform(v)
	}
	return res
}
