package nn

import (
	"math"
	"math/rand"

	"github.com/hik2833/CSC580WeekSix/pkg/core"
)

// Dense is a fully connected layer followed by an activation and optional
// inverted dropout.
type Dense struct {
	W       *core.Matrix // in x out
	B       []float64
	act     Activation
	dropout float64

	gradW *core.Matrix
	gradB []float64

	// cached by a training forward pass
	in, z, mask *core.Matrix
}

// newDense draws Glorot-uniform weights from rng.
func newDense(in, out int, act Activation, dropout float64, rng *rand.Rand) *Dense {
	d := &Dense{W: core.NewMatrix(in, out), B: make([]float64, out), act: act, dropout: dropout}
	limit := math.Sqrt(6 / float64(in+out))
	for i := range d.W.Data {
		d.W.Data[i] = (rng.Float64()*2 - 1) * limit
	}
	return d
}

func (d *Dense) forward(x *core.Matrix, train bool, rng *rand.Rand) (*core.Matrix, error) {
	z, err := core.MatMul(x, d.W)
	if err != nil {
		return nil, err
	}
	if err := z.AddRowVector(d.B); err != nil {
		return nil, err
	}
	a := z.Clone()
	a.Apply(d.act.F)
	d.mask = nil
	if train {
		d.in, d.z = x, z
		if d.dropout > 0 {
			keep := 1 - d.dropout
			d.mask = core.NewMatrix(a.R, a.C)
			for i := range d.mask.Data {
				if rng.Float64() < keep {
					d.mask.Data[i] = 1 / keep
				}
			}
			if err := a.Hadamard(d.mask); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// backward takes dLoss/dOutput, stores the parameter gradients and returns
// dLoss/dInput.
func (d *Dense) backward(dOut *core.Matrix) (*core.Matrix, error) {
	dZ := dOut.Clone()
	if d.mask != nil {
		if err := dZ.Hadamard(d.mask); err != nil {
			return nil, err
		}
	}
	for i, z := range d.z.Data {
		dZ.Data[i] *= d.act.DF(z)
	}
	gradW, err := core.MatMulTransA(d.in, dZ)
	if err != nil {
		return nil, err
	}
	d.gradW = gradW
	d.gradB = dZ.ColSums()
	return core.MatMulTransB(dZ, d.W)
}
