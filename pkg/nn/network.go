package nn

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/core"
	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/loader"
	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
	"github.com/hik2833/CSC580WeekSix/pkg/optim"
)

// ErrDiverged is returned when the training loss stops being finite.
var ErrDiverged = errors.New("nn: loss is not finite")

// predictChunk bounds the rows pushed through the network at once.
const predictChunk = 1024

// Network is a feed-forward binary classifier: hidden Dense layers and a
// single-logit output.
type Network struct {
	Params Params

	nIn    int
	layers []*Dense
	opt    optim.Optimizer
	rng    *rand.Rand
}

// EpochStats records one pass over the training set. Validation fields are
// NaN when no validation set was given.
type EpochStats struct {
	Epoch     int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"`
	ValidLoss float64 `json:"valid_loss"`
	ValidAUC  float64 `json:"valid_auc"`
}

// History is the per-epoch training record.
type History []EpochStats

// New builds a network for nIn inputs. All randomness (initialization,
// dropout masks, batch order) comes from seed.
func New(nIn int, p Params, seed int64) (*Network, error) {
	if nIn <= 0 {
		return nil, errors.Errorf("nn: input width must be positive, got %d", nIn)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	act, err := ActivationByName(p.Activation)
	if err != nil {
		return nil, err
	}
	opt, err := optim.New(p.Optimizer, p.LearningRate)
	if err != nil {
		return nil, err
	}
	n := &Network{Params: p, nIn: nIn, opt: opt, rng: rand.New(rand.NewSource(seed))}
	width := nIn
	for i := 0; i < p.HiddenLayers; i++ {
		n.layers = append(n.layers, newDense(width, p.LayerSize, act, p.Dropout, n.rng))
		width = p.LayerSize
	}
	n.layers = append(n.layers, newDense(width, 1, linear, 0, n.rng))
	return n, nil
}

// NumParams counts trainable weights and biases.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.layers {
		total += len(l.W.Data) + len(l.B)
	}
	return total
}

func (n *Network) logits(x *core.Matrix, train bool) (*core.Matrix, error) {
	var err error
	for _, l := range n.layers {
		if x, err = l.forward(x, train, n.rng); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// backprop runs a training forward and backward pass over one batch and
// leaves the gradients on the layers.
func (n *Network) backprop(x *core.Matrix, y, w []float64) (float64, error) {
	z, err := n.logits(x, true)
	if err != nil {
		return 0, err
	}
	loss, grad := BCEWithLogits(y, z.Data, w)
	d := &core.Matrix{R: z.R, C: 1, Data: grad}
	for i := len(n.layers) - 1; i >= 0; i-- {
		if d, err = n.layers[i].backward(d); err != nil {
			return 0, err
		}
	}
	return loss, nil
}

func (n *Network) update() {
	wd := n.Params.WeightDecay
	for i, l := range n.layers {
		if wd > 0 {
			for j, v := range l.W.Data {
				l.gradW.Data[j] += wd * v
			}
		}
		n.opt.Step(2*i, l.W.Data, l.gradW.Data)
		n.opt.Step(2*i+1, l.B, l.gradB)
	}
}

// Fit trains on train for Params.Epochs epochs. When valid is non-nil its
// weighted loss and ROC-AUC are recorded after every epoch. onEpoch may be nil.
func (n *Network) Fit(ctx context.Context, train, valid *data.Dataset, onEpoch func(EpochStats)) (History, error) {
	if err := train.Validate(); err != nil {
		return nil, err
	}
	if train.NumFeatures() != n.nIn {
		return nil, errors.Errorf("nn: network expects %d features, train set has %d", n.nIn, train.NumFeatures())
	}
	weights := train.Weights()
	hist := make(History, 0, n.Params.Epochs)
	for epoch := 1; epoch <= n.Params.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}
		sumLoss, sumW := 0.0, 0.0
		for _, idx := range loader.Batches(train.Len(), n.Params.BatchSize, n.rng) {
			x := core.Rows(train.X, idx)
			y := make([]float64, len(idx))
			w := make([]float64, len(idx))
			bw := 0.0
			for i, k := range idx {
				y[i], w[i] = train.Y[k], weights[k]
				bw += w[i]
			}
			loss, err := n.backprop(x, y, w)
			if err != nil {
				return hist, err
			}
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return hist, errors.Wrapf(ErrDiverged, "epoch %d", epoch)
			}
			n.update()
			sumLoss += loss * bw
			sumW += bw
		}
		st := EpochStats{Epoch: epoch, TrainLoss: sumLoss / sumW, ValidLoss: math.NaN(), ValidAUC: math.NaN()}
		if valid != nil {
			p, err := n.PredictProba(valid.X)
			if err != nil {
				return hist, err
			}
			st.ValidLoss = metrics.LogLoss(valid.Y, p, valid.W)
			if auc, err := metrics.ROCAUC(valid.Y, p); err == nil {
				st.ValidAUC = auc
			}
		}
		hist = append(hist, st)
		if onEpoch != nil {
			onEpoch(st)
		}
	}
	return hist, nil
}

// PredictProba returns P(y=1) for every row of X with dropout disabled.
func (n *Network) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, 0, len(X))
	for start := 0; start < len(X); start += predictChunk {
		end := min(start+predictChunk, len(X))
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		if w := len(X[start]); w != n.nIn {
			return nil, errors.Errorf("nn: network expects %d features, got %d", n.nIn, w)
		}
		z, err := n.logits(core.Rows(X, idx), false)
		if err != nil {
			return nil, err
		}
		for _, v := range z.Data {
			out = append(out, Sigmoid(v))
		}
	}
	return out, nil
}
