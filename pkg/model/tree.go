package model

import (
	"context"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/pkg/errors"
)

// TreeBaseline is a single decision tree. When Prune is set it is pruned by
// reduced error against Prune after training.
type TreeBaseline struct {
	Tree   *DecisionTreeClassifier
	Prune  *data.Dataset
	Pruned int
}

// NewTreeBaseline wraps a tree built with opts.
func NewTreeBaseline(prune *data.Dataset, opts ...Option) *TreeBaseline {
	return &TreeBaseline{Tree: NewDecisionTreeClassifier(opts...), Prune: prune}
}

// Name implements Baseline.
func (b *TreeBaseline) Name() string { return "decision_tree" }

// Train implements Baseline.
func (b *TreeBaseline) Train(ctx context.Context, ds *data.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Tree.Fit(ds.X, ds.Labels()); err != nil {
		return err
	}
	if b.Prune == nil || b.Prune.Len() == 0 {
		return nil
	}
	n, err := b.Tree.PruneReducedError(b.Prune.X, b.Prune.Labels())
	b.Pruned = n
	return err
}

// PredictProba implements BinaryClassifier.
func (b *TreeBaseline) PredictProba(X [][]float64) ([]float64, error) {
	p := b.Tree.NumFeatures()
	if p == 0 {
		return nil, errors.New("dtree: tree not trained")
	}
	for i, row := range X {
		if len(row) != p {
			return nil, errors.Errorf("dtree: row %d has %d features, want %d", i, len(row), p)
		}
	}
	return b.Tree.ProbaOf(X, 1), nil
}
