package optim

// SGD is plain stochastic gradient descent.
type SGD struct{ LearningRate float64 }

func NewSGD(lr float64) *SGD { return &SGD{LearningRate: lr} }

// Step updates weights in place. SGD keeps no per-tensor state, so id is unused.
func (o *SGD) Step(_ int, weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * grads[i]
	}
}
