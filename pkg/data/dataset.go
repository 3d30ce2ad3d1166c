package data

import (
	"github.com/pkg/errors"
)

// Dataset is a labelled binary classification set held in memory.
type Dataset struct {
	Task     string
	X        [][]float64
	Y        []float64 // 0 or 1
	W        []float64 // per-sample weights
	IDs      []string
	Features []string
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// NumFeatures returns the feature dimension (0 for an empty set).
func (d *Dataset) NumFeatures() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// Labels returns Y as ints for the tree models.
func (d *Dataset) Labels() []int {
	out := make([]int, len(d.Y))
	for i, v := range d.Y {
		if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// Positives counts samples labelled 1.
func (d *Dataset) Positives() int {
	n := 0
	for _, v := range d.Y {
		if v >= 0.5 {
			n++
		}
	}
	return n
}

// Validate checks that X, Y, W and IDs line up and every row has the same width.
func (d *Dataset) Validate() error {
	n := len(d.X)
	if n == 0 {
		return errors.New("data: empty dataset")
	}
	if len(d.Y) != n {
		return errors.Errorf("data: %d rows but %d labels", n, len(d.Y))
	}
	if d.W != nil && len(d.W) != n {
		return errors.Errorf("data: %d rows but %d weights", n, len(d.W))
	}
	if d.IDs != nil && len(d.IDs) != n {
		return errors.Errorf("data: %d rows but %d ids", n, len(d.IDs))
	}
	p := len(d.X[0])
	for i, row := range d.X {
		if len(row) != p {
			return errors.Errorf("data: row %d has %d features, want %d", i, len(row), p)
		}
	}
	return nil
}

// Subset copies the rows at idx into a new Dataset. Feature rows are shared.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Task:     d.Task,
		X:        make([][]float64, len(idx)),
		Y:        make([]float64, len(idx)),
		Features: d.Features,
	}
	if d.W != nil {
		out.W = make([]float64, len(idx))
	}
	if d.IDs != nil {
		out.IDs = make([]string, len(idx))
	}
	for i, k := range idx {
		out.X[i] = d.X[k]
		out.Y[i] = d.Y[k]
		if d.W != nil {
			out.W[i] = d.W[k]
		}
		if d.IDs != nil {
			out.IDs[i] = d.IDs[k]
		}
	}
	return out
}

// WithFeatures returns a shallow copy of d carrying X instead of d.X.
func (d *Dataset) WithFeatures(X [][]float64, names []string) *Dataset {
	cp := *d
	cp.X = X
	cp.Features = names
	return &cp
}

// Weights returns W, or all ones if the set is unweighted.
func (d *Dataset) Weights() []float64 {
	if d.W != nil {
		return d.W
	}
	w := make([]float64, len(d.Y))
	for i := range w {
		w[i] = 1
	}
	return w
}

// ClassBalanceWeights gives each sample the weight n/(2·n_c) so both classes
// carry the same total weight. A class that is absent gets no samples, so
// the other class keeps weight 1.
func ClassBalanceWeights(y []float64) []float64 {
	n := float64(len(y))
	pos := 0.0
	for _, v := range y {
		if v >= 0.5 {
			pos++
		}
	}
	neg := n - pos
	w := make([]float64, len(y))
	for i, v := range y {
		switch {
		case pos == 0 || neg == 0:
			w[i] = 1
		case v >= 0.5:
			w[i] = n / (2 * pos)
		default:
			w[i] = n / (2 * neg)
		}
	}
	return w
}
