package model

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for randomness (feature subsampling)

	// internals
	root      *dtNode
	classes   []int // unique class labels (order used by probas)
	nFeatures int
}

// dtNode holds a node in the tree. Fields are exported for gob.
type dtNode struct {
	IsLeaf    bool
	Feature   int
	Threshold float64 // numeric threshold: x <= threshold => left
	IsCat     bool    // true if this split is a categorical equality split (x == threshold)
	NanLeft   bool    // side missing values were sent to during training
	Left      *dtNode
	Right     *dtNode

	// leaf data
	N      int
	Probas []float64 // probability distribution across classes (aligned with tree.classes)
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0, // 0 => no explicit max (stopping by other criteria)
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / Predict / PredictProba / Save/Load
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
// Missing values must be math.NaN(). Categorical features:
// encode categories as integers (0,1,2...) in the corresponding float64 entry.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx)
}

// FitIndices trains on the rows listed in idx. Repeated indices count as
// repeated samples, which is how bootstrap samples are passed in.
func (t *DecisionTreeClassifier) FitIndices(X [][]float64, y []int, idx []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}

	// collect classes in sorted order so probas line up across trees
	classMap := map[int]bool{}
	t.classes = nil
	for _, ii := range idx {
		if !classMap[y[ii]] {
			classMap[y[ii]] = true
			t.classes = append(t.classes, y[ii])
		}
	}
	sort.Ints(t.classes)

	rnd := rand.New(rand.NewSource(t.RandomState))

	// impurity helper
	impurityFunc := func(counts []int) float64 {
		if t.Criterion == "entropy" {
			return entropyFromCounts(counts)
		}
		return giniFromCounts(counts)
	}

	t.root = t.buildNode(X, y, idx, 0, p, len(t.classes), impurityFunc, rnd)
	t.nFeatures = p
	return nil
}

// NumFeatures is the row width seen during Fit, 0 before training.
func (t *DecisionTreeClassifier) NumFeatures() int { return t.nFeatures }

// Classes returns the labels seen during Fit, ascending.
func (t *DecisionTreeClassifier) Classes() []int { return t.classes }

// Predict returns predicted class labels aligned with the labels the tree was trained on.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.classes[argmaxFloat(t.predictProbaSingle(X[i]))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// ProbaOf returns P(label) for each row, 0 if label never reached this tree.
func (t *DecisionTreeClassifier) ProbaOf(X [][]float64, label int) []float64 {
	out := make([]float64, len(X))
	ci := -1
	for i, c := range t.classes {
		if c == label {
			ci = i
		}
	}
	if ci < 0 {
		return out
	}
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])[ci]
	}
	return out
}

// PruneReducedError collapses bottom-up every split whose two leaves can be
// merged without lowering accuracy on the validation rows. It returns the
// number of splits removed.
func (t *DecisionTreeClassifier) PruneReducedError(Xval [][]float64, yval []int) (int, error) {
	if t.root == nil {
		return 0, errors.New("dtree: tree not trained")
	}
	if len(Xval) == 0 || len(yval) != len(Xval) {
		return 0, errors.New("dtree: invalid validation set")
	}
	baseline := accuracyInt(yval, t.Predict(Xval))
	return t.pruneNodeReducedError(t.root, Xval, yval, &baseline), nil
}

func (t *DecisionTreeClassifier) pruneNodeReducedError(node *dtNode, Xval [][]float64, yval []int, baseline *float64) int {
	if node == nil || node.IsLeaf {
		return 0
	}
	pruned := t.pruneNodeReducedError(node.Left, Xval, yval, baseline) +
		t.pruneNodeReducedError(node.Right, Xval, yval, baseline)

	if !node.Left.IsLeaf || !node.Right.IsLeaf {
		return pruned
	}
	left, right := node.Left, node.Right
	nl, nr := float64(left.N), float64(right.N)
	merged := make([]float64, len(left.Probas))
	for i := range merged {
		merged[i] = (left.Probas[i]*nl + right.Probas[i]*nr) / (nl + nr)
	}
	node.IsLeaf, node.Left, node.Right, node.Probas = true, nil, nil, merged
	if acc := accuracyInt(yval, t.Predict(Xval)); acc >= *baseline {
		*baseline = acc
		return pruned + 1
	}
	node.IsLeaf, node.Left, node.Right, node.Probas = false, left, right, nil
	return pruned
}

// treeSnapshot is the gob wire form of a fitted tree.
type treeSnapshot struct {
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	Criterion           string
	MaxFeatures         int
	MinImpurityDecrease float64
	RandomState         int64
	Classes             []int
	NFeatures           int
	Root                *dtNode
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	if t.root == nil {
		return nil, errors.New("dtree: tree not trained")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeSnapshot{
		MaxDepth:            t.MaxDepth,
		MinSamplesSplit:     t.MinSamplesSplit,
		MinSamplesLeaf:      t.MinSamplesLeaf,
		Criterion:           t.Criterion,
		MaxFeatures:         t.MaxFeatures,
		MinImpurityDecrease: t.MinImpurityDecrease,
		RandomState:         t.RandomState,
		Classes:             t.classes,
		NFeatures:           t.nFeatures,
		Root:                t.root,
	})
	if err != nil {
		return nil, errors.Wrap(err, "dtree: encode")
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(data []byte) error {
	var s treeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "dtree: decode")
	}
	t.MaxDepth = s.MaxDepth
	t.MinSamplesSplit = s.MinSamplesSplit
	t.MinSamplesLeaf = s.MinSamplesLeaf
	t.Criterion = s.Criterion
	t.MaxFeatures = s.MaxFeatures
	t.MinImpurityDecrease = s.MinImpurityDecrease
	t.RandomState = s.RandomState
	t.classes = s.Classes
	t.nFeatures = s.NFeatures
	t.root = s.Root
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found for one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	isCat     bool
	nanLeft   bool
}

// pair is a named type for a value and its original index.
type pair struct {
	v float64
	i int
}

func (t *DecisionTreeClassifier) leaf(node *dtNode, counts []int) *dtNode {
	node.IsLeaf = true
	node.Probas = countsToProbas(counts)
	return node
}

func (t *DecisionTreeClassifier) buildNode(X [][]float64, y []int, idx []int, depth, p, nClasses int, impurity func([]int) float64, rnd *rand.Rand) *dtNode {
	node := &dtNode{N: len(idx)}
	counts := countsFromIndices(y, idx, nClasses, t.classes)

	// make leaf if pure or too few samples or depth reached
	if isPure(counts) || (t.MinSamplesSplit > 0 && len(idx) < t.MinSamplesSplit) {
		return t.leaf(node, counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return t.leaf(node, counts)
	}

	// determine features to try
	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	parentImpurity := impurity(counts)

	// Parallel search for the best split for each feature.
	results := make([]splitResult, len(featIndices))
	var wg sync.WaitGroup
	for k, f := range featIndices {
		wg.Add(1)
		go func(k, f int) {
			defer wg.Done()
			results[k] = t.findBestSplitForFeature(X, y, idx, f, nClasses, parentImpurity, impurity)
		}(k, f)
	}
	wg.Wait()

	// Ties keep the earliest sampled feature so the tree is reproducible.
	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return t.leaf(node, counts)
	}

	leftIdx, rightIdx := partition(X, idx, best)
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.IsCat = best.isCat
	node.NanLeft = best.nanLeft
	node.Left = t.buildNode(X, y, leftIdx, depth+1, p, nClasses, impurity, rnd)
	node.Right = t.buildNode(X, y, rightIdx, depth+1, p, nClasses, impurity, rnd)
	return node
}

// partition routes idx through split s.
func partition(X [][]float64, idx []int, s splitResult) (left, right []int) {
	for _, ii := range idx {
		v := X[ii][s.feature]
		var goLeft bool
		switch {
		case math.IsNaN(v):
			goLeft = s.nanLeft
		case s.isCat:
			goLeft = v == s.threshold
		default:
			goLeft = v <= s.threshold
		}
		if goLeft {
			left = append(left, ii)
		} else {
			right = append(right, ii)
		}
	}
	return left, right
}

// findBestSplitForFeature scans one feature. Numeric thresholds are swept in
// a single pass over the sorted values with running class counts; NaNs are
// tried on both sides.
func (t *DecisionTreeClassifier) findBestSplitForFeature(X [][]float64, y []int, idx []int, f, nClasses int, parentImpurity float64, impurity func([]int) float64) splitResult {
	result := splitResult{gain: 0.0, feature: -1}

	valid := make([]pair, 0, len(idx))
	nanCounts := make([]int, nClasses)
	nNaN := 0
	for _, ii := range idx {
		v := X[ii][f]
		if math.IsNaN(v) {
			nanCounts[classIndex(y[ii], t.classes)]++
			nNaN++
			continue
		}
		valid = append(valid, pair{v, ii})
	}
	if len(valid) == 0 {
		return result
	}
	total := float64(len(idx))
	validCounts := countsFromPairs(y, valid, nClasses, t.classes)

	try := func(left []int, nLeft int, thr float64, isCat bool) {
		right := make([]int, nClasses)
		for c := range right {
			right[c] = validCounts[c] - left[c]
		}
		nRight := len(valid) - nLeft
		for _, nanLeft := range []bool{true, false} {
			l := append([]int(nil), left...)
			r := append([]int(nil), right...)
			nl, nr := nLeft, nRight
			if nNaN > 0 {
				dst := r
				if nanLeft {
					dst = l
					nl += nNaN
				} else {
					nr += nNaN
				}
				for c, n := range nanCounts {
					dst[c] += n
				}
			} else if !nanLeft {
				continue
			}
			if nl < max(t.MinSamplesLeaf, 1) || nr < max(t.MinSamplesLeaf, 1) {
				continue
			}
			weighted := (float64(nl)/total)*impurity(l) + (float64(nr)/total)*impurity(r)
			if gain := parentImpurity - weighted; gain > result.gain {
				result = splitResult{gain: gain, feature: f, threshold: thr, isCat: isCat, nanLeft: nanLeft}
			}
		}
	}

	sort.Slice(valid, func(a, b int) bool { return valid[a].v < valid[b].v })

	// categorical-equality splits when values are integer-like with a small unique set
	if uniq := uniqueValuesFromPairs(valid); len(uniq) > 2 && len(uniq) <= 30 && allIntLike(uniq) {
		for _, uv := range uniq {
			left := make([]int, nClasses)
			nLeft := 0
			for _, pv := range valid {
				if pv.v == uv {
					left[classIndex(y[pv.i], t.classes)]++
					nLeft++
				}
			}
			try(left, nLeft, uv, true)
		}
	}

	// numeric splits between distinct sorted values
	left := make([]int, nClasses)
	for s := 1; s < len(valid); s++ {
		left[classIndex(y[valid[s-1].i], t.classes)]++
		if valid[s].v == valid[s-1].v {
			continue
		}
		try(left, s, (valid[s-1].v+valid[s].v)/2.0, false)
	}
	return result
}

// ---------------------------
// Helpers used in buildNode
// ---------------------------

func almostInt(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	_, frac := math.Modf(math.Abs(v))
	return frac < 1e-9 || frac > 1-1e-9
}

func allIntLike(vals []float64) bool {
	for _, v := range vals {
		if !almostInt(v) {
			return false
		}
	}
	return true
}

// uniqueValuesFromPairs expects pairs sorted by value.
func uniqueValuesFromPairs(pairs []pair) []float64 {
	out := make([]float64, 0, 8)
	for i, p := range pairs {
		if i == 0 || p.v != pairs[i-1].v {
			out = append(out, p.v)
			if len(out) > 30 {
				return out
			}
		}
	}
	return out
}

func countsFromPairs(y []int, pairs []pair, nClasses int, classes []int) []int {
	counts := make([]int, nClasses)
	for _, p := range pairs {
		counts[classIndex(y[p.i], classes)]++
	}
	return counts
}

func countsFromIndices(y []int, idx []int, nClasses int, classes []int) []int {
	counts := make([]int, nClasses)
	for _, ii := range idx {
		counts[classIndex(y[ii], classes)]++
	}
	return counts
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.IsLeaf {
		val := x[node.Feature]
		if math.IsNaN(val) {
			if node.NanLeft {
				node = node.Left
			} else {
				node = node.Right
			}
			continue
		}
		if node.IsCat {
			if val == node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		} else {
			if val <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
	}
	return node.Probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}

func accuracyInt(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0.0
	}
	n := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			n++
		}
	}
	return float64(n) / float64(len(yTrue))
}

// classIndex returns index of label in classes slice.
func classIndex(label int, classes []int) int {
	for i, v := range classes {
		if v == label {
			return i
		}
	}
	return 0
}
