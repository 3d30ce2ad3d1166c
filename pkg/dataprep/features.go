package dataprep

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// VarianceThreshold drops columns whose training variance is at most
// Threshold. With the default 0 it removes constant columns, e.g.
// fingerprint bits that never fire.
type VarianceThreshold struct {
	Threshold float64
	Keep      []int
}

func NewVarianceThreshold(threshold float64) *VarianceThreshold {
	return &VarianceThreshold{Threshold: threshold}
}

// Fit selects the columns to keep. It fails if none survive.
func (v *VarianceThreshold) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("dataprep: empty X")
	}
	cols := len(X[0])
	col := make([]float64, len(X))
	v.Keep = v.Keep[:0]
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		if len(col) < 2 {
			v.Keep = append(v.Keep, j)
			continue
		}
		if stat.Variance(col, nil) > v.Threshold {
			v.Keep = append(v.Keep, j)
		}
	}
	if len(v.Keep) == 0 {
		return errors.Errorf("dataprep: no column has variance above %v", v.Threshold)
	}
	return nil
}

func (v *VarianceThreshold) Transform(X [][]float64) [][]float64 {
	return FeatureSelect(X, v.Keep)
}

// SelectNames maps input column names to the kept ones.
func (v *VarianceThreshold) SelectNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(v.Keep))
	for i, j := range v.Keep {
		out[i] = names[j]
	}
	return out
}

// FeatureSelect selects columns by indices.
func FeatureSelect(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		selected := make([]float64, len(indices))
		for j, idx := range indices {
			selected[j] = row[idx]
		}
		out[i] = selected
	}
	return out
}
