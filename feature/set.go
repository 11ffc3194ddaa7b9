package feature

import (
	"gonum.org/v1/gonum/mat"
)

// Set holds the generated values of each feature keyed by the feature string. All
// features share the same number of observations m; shorter series are zero padded.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations per feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Labels returns the features in insertion order
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return NewLabels(labels)
}

func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil || s.set == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

// Set stores the values for a feature overriding any existing values
func (s *Set) Set(f Feature, data []float64) *Set {
	if s.set == nil {
		s.set = make(map[string][]float64)
	}
	key := f.String()
	if _, exists := s.set[key]; !exists {
		s.labels = append(s.labels, f)
	}

	if len(data) > s.m {
		for k, v := range s.set {
			padded := make([]float64, len(data))
			copy(padded, v)
			s.set[k] = padded
		}
		s.m = len(data)
	}
	if len(data) < s.m {
		padded := make([]float64, s.m)
		copy(padded, data)
		data = padded
	}
	s.set[key] = data
	return s
}

func (s *Set) Del(f Feature) *Set {
	key := f.String()
	if _, exists := s.set[key]; !exists {
		return s
	}
	delete(s.set, key)
	for i, label := range s.labels {
		if label.String() == key {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			break
		}
	}
	if len(s.labels) == 0 {
		s.labels = nil
		s.m = 0
	}
	return s
}

// Update merges all features of other into this set
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s.Set(f, other.set[f.String()])
	}
	return s
}

// Matrix returns the m x n design matrix of the set with columns in label order. An
// intercept column of ones is prepended when requested.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s == nil || len(s.labels) == 0 || s.m == 0 {
		return nil
	}
	n := len(s.labels)
	if intercept {
		n++
	}

	obs := make([]float64, s.m*n)
	for i := 0; i < s.m; i++ {
		col := 0
		if intercept {
			obs[i*n] = 1.0
			col++
		}
		for _, f := range s.labels {
			obs[i*n+col] = s.set[f.String()][i]
			col++
		}
	}
	return mat.NewDense(s.m, n, obs)
}

// RemoveZeroOnlyFeatures drops any feature that has no non-zero observations
func (s *Set) RemoveZeroOnlyFeatures() {
	if s == nil {
		return
	}
	for _, f := range s.Labels().Labels() {
		data := s.set[f.String()]
		allZero := true
		for _, v := range data {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			s.Del(f)
		}
	}
}
