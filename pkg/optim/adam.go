package optim

import "math"

// Adam keeps first and second moment estimates per parameter tensor.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	state map[int]*moments
}

type moments struct {
	m, v []float64
	t    int
}

// NewAdam uses the usual defaults β1=0.9, β2=0.999, ε=1e-7.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		state:        make(map[int]*moments),
	}
}

// Step applies one bias-corrected Adam update to the tensor identified by id.
func (o *Adam) Step(id int, weights, grads []float64) {
	st, ok := o.state[id]
	if !ok {
		st = &moments{m: make([]float64, len(weights)), v: make([]float64, len(weights))}
		o.state[id] = st
	}
	st.t++
	c1 := 1 - math.Pow(o.Beta1, float64(st.t))
	c2 := 1 - math.Pow(o.Beta2, float64(st.t))
	for i, g := range grads {
		st.m[i] = o.Beta1*st.m[i] + (1-o.Beta1)*g
		st.v[i] = o.Beta2*st.v[i] + (1-o.Beta2)*g*g
		mHat := st.m[i] / c1
		vHat := st.v[i] / c2
		weights[i] -= o.LearningRate * mHat / (math.Sqrt(vHat) + o.Epsilon)
	}
}
