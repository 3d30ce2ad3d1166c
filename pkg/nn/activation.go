package nn

import (
	"math"

	"github.com/pkg/errors"
)

func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func SigmoidPrime(x float64) float64 { s := Sigmoid(x); return s * (1 - s) }

func ReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func ReLUPrime(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func TanhPrime(x float64) float64 { t := math.Tanh(x); return 1 - t*t }

// Activation pairs a function with its derivative, both taken at the
// pre-activation value.
type Activation struct {
	Name string
	F    func(float64) float64
	DF   func(float64) float64
}

var linear = Activation{
	Name: "linear",
	F:    func(x float64) float64 { return x },
	DF:   func(float64) float64 { return 1 },
}

// ActivationByName resolves relu, tanh or sigmoid.
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "", "relu":
		return Activation{Name: "relu", F: ReLU, DF: ReLUPrime}, nil
	case "tanh":
		return Activation{Name: "tanh", F: math.Tanh, DF: TanhPrime}, nil
	case "sigmoid":
		return Activation{Name: "sigmoid", F: Sigmoid, DF: SigmoidPrime}, nil
	default:
		return Activation{}, errors.Errorf("nn: unknown activation %q", name)
	}
}
