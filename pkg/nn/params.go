package nn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Params configures one network build and training run.
type Params struct {
	HiddenLayers int     `yaml:"hidden_layers" json:"hidden_layers"`
	LayerSize    int     `yaml:"layer_size" json:"layer_size"`
	Dropout      float64 `yaml:"dropout" json:"dropout"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay" json:"weight_decay"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size"`
	Activation   string  `yaml:"activation" json:"activation"`
	Optimizer    string  `yaml:"optimizer" json:"optimizer"`
}

// DefaultParams is a single 50-unit ReLU layer trained with Adam.
func DefaultParams() Params {
	return Params{
		HiddenLayers: 1,
		LayerSize:    50,
		Dropout:      0.5,
		LearningRate: 0.001,
		Epochs:       10,
		BatchSize:    100,
		Activation:   "relu",
		Optimizer:    "adam",
	}
}

func (p Params) Validate() error {
	switch {
	case p.HiddenLayers < 0:
		return errors.Errorf("nn: hidden_layers must be >= 0, got %d", p.HiddenLayers)
	case p.HiddenLayers > 0 && p.LayerSize <= 0:
		return errors.Errorf("nn: layer_size must be > 0, got %d", p.LayerSize)
	case p.Dropout < 0 || p.Dropout >= 1:
		return errors.Errorf("nn: dropout must be in [0,1), got %v", p.Dropout)
	case p.LearningRate <= 0:
		return errors.Errorf("nn: learning_rate must be > 0, got %v", p.LearningRate)
	case p.WeightDecay < 0:
		return errors.Errorf("nn: weight_decay must be >= 0, got %v", p.WeightDecay)
	case p.Epochs <= 0:
		return errors.Errorf("nn: epochs must be > 0, got %d", p.Epochs)
	case p.BatchSize <= 0:
		return errors.Errorf("nn: batch_size must be > 0, got %d", p.BatchSize)
	}
	if _, err := ActivationByName(p.Activation); err != nil {
		return err
	}
	if p.Optimizer != "" && p.Optimizer != "adam" && p.Optimizer != "sgd" {
		return errors.Errorf("nn: unknown optimizer %q", p.Optimizer)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("layers=%d size=%d dropout=%g lr=%g wd=%g epochs=%d batch=%d act=%s opt=%s",
		p.HiddenLayers, p.LayerSize, p.Dropout, p.LearningRate, p.WeightDecay,
		p.Epochs, p.BatchSize, p.Activation, p.Optimizer)
}
