package dataprep

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// MeanImputer replaces NaN entries with the column mean seen during Fit.
type MeanImputer struct {
	Means []float64
}

func NewMeanImputer() *MeanImputer { return &MeanImputer{} }

// Fit records each column's mean over its non-NaN values. A column with no
// values gets 0.
func (m *MeanImputer) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("dataprep: empty X")
	}
	cols := len(X[0])
	m.Means = make([]float64, cols)
	col := make([]float64, 0, len(X))
	for j := 0; j < cols; j++ {
		col = col[:0]
		for i := range X {
			if v := X[i][j]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) > 0 {
			m.Means[j] = stat.Mean(col, nil)
		}
	}
	return nil
}

// Transform returns a copy of X with NaNs filled. Rows without NaNs are shared.
func (m *MeanImputer) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = row
		copied := false
		for j, v := range row {
			if !math.IsNaN(v) {
				continue
			}
			if !copied {
				out[i] = append([]float64(nil), row...)
				copied = true
			}
			out[i][j] = m.Means[j]
		}
	}
	return out
}
