package nn

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/core"
	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
)

// linearlySeparable labels x0+x1 > 0 as positive.
func linearlySeparable(n int, seed int64) *data.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &data.Dataset{}
	for i := 0; i < n; i++ {
		x := make([]float64, 5)
		for j := range x {
			x[j] = rng.Float64()*2 - 1
		}
		y := 0.0
		if x[0]+x[1] > 0 {
			y = 1
		}
		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, y)
	}
	return ds
}

func testParams() Params {
	return Params{
		HiddenLayers: 1,
		LayerSize:    8,
		LearningRate: 0.01,
		Epochs:       30,
		BatchSize:    32,
		Activation:   "relu",
		Optimizer:    "adam",
	}
}

func TestNetworkLearnsSeparableData(t *testing.T) {
	train := linearlySeparable(400, 1)
	valid := linearlySeparable(200, 2)
	net, err := New(5, testParams(), 42)
	if err != nil {
		t.Fatal(err)
	}
	epochs := 0
	hist, err := net.Fit(context.Background(), train, valid, func(EpochStats) { epochs++ })
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 30 || epochs != 30 {
		t.Fatalf("history has %d epochs, callback saw %d", len(hist), epochs)
	}
	if hist[len(hist)-1].TrainLoss >= hist[0].TrainLoss {
		t.Fatalf("train loss did not decrease: %v -> %v", hist[0].TrainLoss, hist[len(hist)-1].TrainLoss)
	}
	p, err := net.PredictProba(valid.X)
	if err != nil {
		t.Fatal(err)
	}
	auc, err := metrics.ROCAUC(valid.Y, p)
	if err != nil {
		t.Fatal(err)
	}
	if auc < 0.95 {
		t.Fatalf("validation AUC = %v, want >= 0.95", auc)
	}
	if math.Abs(auc-hist[len(hist)-1].ValidAUC) > 1e-12 {
		t.Fatalf("history AUC %v disagrees with recomputed %v", hist[len(hist)-1].ValidAUC, auc)
	}
}

func TestNetworkDeterministicPerSeed(t *testing.T) {
	train := linearlySeparable(100, 3)
	p := testParams()
	p.Epochs = 3
	p.Dropout = 0.3
	run := func(seed int64) []float64 {
		net, err := New(5, p, seed)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := net.Fit(context.Background(), train, nil, nil); err != nil {
			t.Fatal(err)
		}
		out, err := net.PredictProba(train.X[:10])
		if err != nil {
			t.Fatal(err)
		}
		return out
	}
	a, b, c := run(9), run(9), run(10)
	differs := false
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different predictions at %d: %v vs %v", i, a[i], b[i])
		}
		if a[i] != c[i] {
			differs = true
		}
	}
	if !differs {
		t.Fatal("different seeds gave identical predictions")
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	p := Params{HiddenLayers: 2, LayerSize: 4, LearningRate: 0.1, Epochs: 1, BatchSize: 4, Activation: "tanh", Optimizer: "sgd"}
	net, err := New(3, p, 5)
	if err != nil {
		t.Fatal(err)
	}
	x := core.FromSlice([][]float64{{0.1, -0.4, 0.3}, {0.9, 0.2, -0.5}, {-0.3, 0.8, 0.6}, {0.5, 0.5, -0.1}})
	y := []float64{1, 0, 1, 0}
	w := []float64{1, 2, 0.5, 1}
	if _, err := net.backprop(x, y, w); err != nil {
		t.Fatal(err)
	}
	lossAt := func() float64 {
		z, err := net.logits(x, false)
		if err != nil {
			t.Fatal(err)
		}
		l, _ := BCEWithLogits(y, z.Data, w)
		return l
	}
	const h = 1e-6
	for li, l := range net.layers {
		for k := range l.W.Data {
			orig := l.W.Data[k]
			l.W.Data[k] = orig + h
			up := lossAt()
			l.W.Data[k] = orig - h
			down := lossAt()
			l.W.Data[k] = orig
			numeric := (up - down) / (2 * h)
			if math.Abs(numeric-l.gradW.Data[k]) > 1e-6 {
				t.Fatalf("layer %d weight %d: analytic %v, numeric %v", li, k, l.gradW.Data[k], numeric)
			}
		}
		for k := range l.B {
			orig := l.B[k]
			l.B[k] = orig + h
			up := lossAt()
			l.B[k] = orig - h
			down := lossAt()
			l.B[k] = orig
			numeric := (up - down) / (2 * h)
			if math.Abs(numeric-l.gradB[k]) > 1e-6 {
				t.Fatalf("layer %d bias %d: analytic %v, numeric %v", li, k, l.gradB[k], numeric)
			}
		}
	}
}

func TestFitHonoursContext(t *testing.T) {
	net, err := New(5, testParams(), 1)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hist, err := net.Fit(ctx, linearlySeparable(50, 1), nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(hist) != 0 {
		t.Fatalf("history = %v", hist)
	}
}

func TestFeatureWidthMismatch(t *testing.T) {
	net, err := New(4, testParams(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := net.Fit(context.Background(), linearlySeparable(20, 1), nil, nil); err == nil {
		t.Fatal("expected width mismatch error")
	}
	if _, err := net.PredictProba([][]float64{{1, 2}}); err == nil {
		t.Fatal("expected width mismatch error")
	}
}

func TestNewShapesAndParams(t *testing.T) {
	p := testParams()
	p.HiddenLayers, p.LayerSize = 2, 3
	net, err := New(4, p, 1)
	if err != nil {
		t.Fatal(err)
	}
	// 4*3+3 + 3*3+3 + 3*1+1
	if got := net.NumParams(); got != 31 {
		t.Fatalf("NumParams = %d, want 31", got)
	}

	bad := []func(*Params){
		func(p *Params) { p.Dropout = 1 },
		func(p *Params) { p.LearningRate = 0 },
		func(p *Params) { p.Epochs = 0 },
		func(p *Params) { p.BatchSize = 0 },
		func(p *Params) { p.LayerSize = 0 },
		func(p *Params) { p.Activation = "swish" },
		func(p *Params) { p.Optimizer = "lbfgs" },
	}
	for i, mutate := range bad {
		p := testParams()
		mutate(&p)
		if _, err := New(4, p, 1); err == nil {
			t.Errorf("case %d: expected validation error for %s", i, p)
		}
	}
}

func TestBCEWithLogitsMatchesLogLoss(t *testing.T) {
	y := []float64{1, 0, 1}
	z := []float64{2, -1, -3}
	w := []float64{1, 3, 0.5}
	loss, grad := BCEWithLogits(y, z, w)
	p := make([]float64, len(z))
	for i, v := range z {
		p[i] = Sigmoid(v)
	}
	if want := metrics.LogLoss(y, p, w); math.Abs(loss-want) > 1e-9 {
		t.Fatalf("loss = %v, want %v", loss, want)
	}
	if grad[1] <= 0 || grad[2] >= 0 {
		t.Fatalf("gradient signs wrong: %v", grad)
	}
}
