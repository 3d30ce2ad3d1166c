package optim

import "github.com/pkg/errors"

// Optimizer updates a parameter tensor from its gradient. id distinguishes
// tensors for optimizers that keep per-tensor state.
type Optimizer interface {
	Step(id int, weights, grads []float64)
}

// New returns the optimizer registered under name ("adam" or "sgd").
func New(name string, lr float64) (Optimizer, error) {
	if lr <= 0 {
		return nil, errors.Errorf("optim: learning rate must be positive, got %v", lr)
	}
	switch name {
	case "", "adam":
		return NewAdam(lr), nil
	case "sgd":
		return NewSGD(lr), nil
	default:
		return nil, errors.Errorf("optim: unknown optimizer %q", name)
	}
}
