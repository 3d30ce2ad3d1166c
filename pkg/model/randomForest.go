package model

import (
	"bytes"
	"context"
	"encoding/gob"
	"math"
	"math/rand"
	"runtime"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultForestSeed seeds forests built without WithForestSeed.
const DefaultForestSeed = 42

// RandomForest for binary classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => floor(sqrt(p))
	Bootstrap       bool
	RandomState     int64

	// Internal state
	Trees     []*DecisionTreeClassifier
	nFeatures int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestDepth(d int) RandomForestOption { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithForestMinLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestSeed(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     DefaultForestSeed,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Name implements Baseline.
func (rf *RandomForest) Name() string { return "random_forest" }

// Train implements Baseline. Sample weights are not used; each tree sees an
// unweighted bootstrap sample.
func (rf *RandomForest) Train(ctx context.Context, ds *data.Dataset) error {
	return rf.FitContext(ctx, ds.X, ds.Labels())
}

// Fit trains the random forest.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains the trees on a bounded worker pool. Each tree draws its
// own bootstrap sample from a source seeded with RandomState+tree index, so
// the fitted forest does not depend on scheduling.
func (rf *RandomForest) FitContext(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators < 1 {
		return errors.Errorf("randomforest: n_estimators must be positive, got %d", rf.NEstimators)
	}
	p := len(X[0])
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < rf.NEstimators; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := rf.RandomState + int64(i)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sampleIndices := make([]int, n)
			for j := range sampleIndices {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithRandomState(seed),
			)
			if err := tree.FitIndices(X, y, sampleIndices); err != nil {
				return errors.Wrapf(err, "randomforest: tree %d", i)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.Trees = trees
	rf.nFeatures = p
	return nil
}

func (rf *RandomForest) check(X [][]float64) error {
	if len(rf.Trees) == 0 {
		return errors.New("randomforest: not trained")
	}
	for i, row := range X {
		if len(row) != rf.nFeatures {
			return errors.Errorf("randomforest: row %d has %d features, want %d", i, len(row), rf.nFeatures)
		}
	}
	return nil
}

// PredictProba returns the mean over trees of P(y=1).
func (rf *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if err := rf.check(X); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for _, tree := range rf.Trees {
		for i, v := range tree.ProbaOf(X, 1) {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.Trees))
	}
	return out, nil
}

// Predict returns the majority vote of all trees. Ties go to the smaller label.
func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	if err := rf.check(X); err != nil {
		return nil, err
	}
	votes := make([]map[int]int, len(X))
	for i := range votes {
		votes[i] = make(map[int]int, 2)
	}
	for _, tree := range rf.Trees {
		for i, c := range tree.Predict(X) {
			votes[i][c]++
		}
	}
	out := make([]int, len(X))
	for i, counts := range votes {
		best, bestN := 0, -1
		for cls, cnt := range counts {
			if cnt > bestN || (cnt == bestN && cls < best) {
				best, bestN = cls, cnt
			}
		}
		out[i] = best
	}
	return out, nil
}

// MarshalBinary encodes the fitted trees with gob.
func (rf *RandomForest) MarshalBinary() ([]byte, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("randomforest: not trained")
	}
	blobs := make([][]byte, len(rf.Trees))
	for i, t := range rf.Trees {
		b, err := t.MarshalBinary()
		if err != nil {
			return nil, err
		}
		blobs[i] = b
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(struct {
		NFeatures int
		Trees     [][]byte
	}{rf.nFeatures, blobs}); err != nil {
		return nil, errors.Wrap(err, "randomforest: encode")
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores trees written by MarshalBinary.
func (rf *RandomForest) UnmarshalBinary(b []byte) error {
	var s struct {
		NFeatures int
		Trees     [][]byte
	}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return errors.Wrap(err, "randomforest: decode")
	}
	trees := make([]*DecisionTreeClassifier, len(s.Trees))
	for i, blob := range s.Trees {
		trees[i] = &DecisionTreeClassifier{}
		if err := trees[i].UnmarshalBinary(blob); err != nil {
			return err
		}
	}
	rf.Trees = trees
	rf.nFeatures = s.NFeatures
	rf.NEstimators = len(trees)
	return nil
}
