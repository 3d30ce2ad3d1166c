package model

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/loader"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/optim"
	"github.com/pkg/errors"
)

// LogisticRegression (binary) with sigmoid, trained on the weighted
// cross-entropy by seeded mini-batch gradient descent.
type LogisticRegression struct {
	W         []float64 // weights
	B         float64   // bias
	Lr        float64
	Epochs    int
	BatchSize int
	Optimizer string
	Seed      int64
}

// NewLogisticRegression initializes a new Logistic Regression model. Weights
// are sized on the first Train.
func NewLogisticRegression(lr float64, epochs, batchSize int, seed int64) *LogisticRegression {
	return &LogisticRegression{
		Lr:        lr,
		Epochs:    epochs,
		BatchSize: batchSize,
		Optimizer: "sgd",
		Seed:      seed,
	}
}

// Name implements Baseline.
func (m *LogisticRegression) Name() string { return "logistic_regression" }

// PredictProba returns the probability scores (between 0 and 1) for each input row in X.
// Rows are split across GOMAXPROCS workers.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if m.W == nil {
		return nil, errors.New("logistic: not trained")
	}
	for i, row := range X {
		if len(row) != len(m.W) {
			return nil, errors.Errorf("logistic: row %d has %d features, want %d", i, len(row), len(m.W))
		}
	}
	out := make([]float64, len(X))
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = nn.Sigmoid(m.logit(X[i]))
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

func (m *LogisticRegression) logit(row []float64) float64 {
	sum := m.B
	for j, v := range row {
		sum += m.W[j] * v
	}
	return sum
}

// Train implements Baseline. Sample weights come from ds.W.
func (m *LogisticRegression) Train(ctx context.Context, ds *data.Dataset) error {
	if ds.Len() == 0 {
		return errors.New("logistic: empty dataset")
	}
	if m.Epochs < 1 {
		return errors.Errorf("logistic: epochs must be positive, got %d", m.Epochs)
	}
	opt, err := optim.New(m.Optimizer, m.Lr)
	if err != nil {
		return errors.Wrap(err, "logistic")
	}
	p := ds.NumFeatures()
	m.W = make([]float64, p)
	m.B = 0
	rng := rand.New(rand.NewSource(m.Seed))
	for j := range m.W {
		m.W[j] = rng.NormFloat64() * 0.01
	}
	w := ds.Weights()
	bias := []float64{0}

	for ep := 0; ep < m.Epochs; ep++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, batch := range loader.Batches(ds.Len(), m.BatchSize, rng) {
			z := make([]float64, len(batch))
			yb := make([]float64, len(batch))
			wb := make([]float64, len(batch))
			for k, i := range batch {
				z[k] = m.logit(ds.X[i])
				yb[k] = ds.Y[i]
				wb[k] = w[i]
			}
			_, dz := nn.BCEWithLogits(yb, z, wb)

			gW := make([]float64, p)
			gb := 0.0
			for k, i := range batch {
				for j, xij := range ds.X[i] {
					gW[j] += dz[k] * xij
				}
				gb += dz[k]
			}
			opt.Step(0, m.W, gW)
			bias[0] = m.B
			opt.Step(1, bias, []float64{gb})
			m.B = bias[0]
		}
	}
	return nil
}
