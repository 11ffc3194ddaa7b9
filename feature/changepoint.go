package feature

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Changepoint is a point in time after which the trend slope may change
type Changepoint struct {
	Name string    `json:"name"`
	T    time.Time `json:"time"`
}

func NewChangepoint(name string, t time.Time) *Changepoint {
	return &Changepoint{name, t}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s", c.Name)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "time":
		return c.T.Format(time.RFC3339Nano), true
	}
	return "", false
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	return map[string]string{
		"name": c.Name,
		"time": c.T.Format(time.RFC3339Nano),
	}
}

func (c *Changepoint) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name string `json:"name"`
		Time string `json:"time"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, labelStr.Time)
	if err != nil {
		return err
	}
	c.Name = labelStr.Name
	c.T = t.UTC()
	return nil
}

// Generate produces the hinge regressor max(0, s - s_c) where s is scaled time and
// s_c is the changepoint location on the same scale.
func (c Changepoint) Generate(scaledT []float64, scaledChpt float64) []float64 {
	res := make([]float64, len(scaledT))
	for i, s := range scaledT {
		res[i] = math.Max(0, s-scaledChpt)
	}
	return res
}
