package model

import (
	"context"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
)

// BinaryClassifier yields P(y=1) for each row of X.
type BinaryClassifier interface {
	PredictProba(X [][]float64) ([]float64, error)
}

// Baseline is a classifier trained in one call on a whole dataset.
type Baseline interface {
	BinaryClassifier
	Name() string
	Train(ctx context.Context, ds *data.Dataset) error
}
