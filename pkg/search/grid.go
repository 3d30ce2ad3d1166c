package search

import "github.com/hik2833/CSC580WeekSix/pkg/nn"

// Grid lists candidate values per network parameter. An empty list keeps the
// default for that parameter.
type Grid struct {
	HiddenLayers []int     `yaml:"hidden_layers" json:"hidden_layers,omitempty"`
	LayerSize    []int     `yaml:"layer_size" json:"layer_size,omitempty"`
	Dropout      []float64 `yaml:"dropout" json:"dropout,omitempty"`
	LearningRate []float64 `yaml:"learning_rate" json:"learning_rate,omitempty"`
	Epochs       []int     `yaml:"epochs" json:"epochs,omitempty"`
	BatchSize    []int     `yaml:"batch_size" json:"batch_size,omitempty"`
	WeightDecay  []float64 `yaml:"weight_decay" json:"weight_decay,omitempty"`
	Activation   []string  `yaml:"activation" json:"activation,omitempty"`
	Optimizer    []string  `yaml:"optimizer" json:"optimizer,omitempty"`
}

// Size is the number of configurations Expand yields.
func (g Grid) Size() int {
	n := 1
	for _, l := range []int{
		len(g.HiddenLayers), len(g.LayerSize), len(g.Dropout), len(g.LearningRate),
		len(g.Epochs), len(g.BatchSize), len(g.WeightDecay), len(g.Activation), len(g.Optimizer),
	} {
		n *= max(l, 1)
	}
	return n
}

// Expand returns the Cartesian product of the grid over defaults. Hidden
// layers vary slowest and optimizer fastest, so the order is fixed for a
// given grid.
func (g Grid) Expand(defaults nn.Params) []nn.Params {
	ps := []nn.Params{defaults}
	ps = cross(ps, g.HiddenLayers, func(p *nn.Params, v int) { p.HiddenLayers = v })
	ps = cross(ps, g.LayerSize, func(p *nn.Params, v int) { p.LayerSize = v })
	ps = cross(ps, g.Dropout, func(p *nn.Params, v float64) { p.Dropout = v })
	ps = cross(ps, g.LearningRate, func(p *nn.Params, v float64) { p.LearningRate = v })
	ps = cross(ps, g.Epochs, func(p *nn.Params, v int) { p.Epochs = v })
	ps = cross(ps, g.BatchSize, func(p *nn.Params, v int) { p.BatchSize = v })
	ps = cross(ps, g.WeightDecay, func(p *nn.Params, v float64) { p.WeightDecay = v })
	ps = cross(ps, g.Activation, func(p *nn.Params, v string) { p.Activation = v })
	ps = cross(ps, g.Optimizer, func(p *nn.Params, v string) { p.Optimizer = v })
	return ps
}

// cross extends every params in ps with each of vals, keeping ps order outermost.
func cross[T any](ps []nn.Params, vals []T, set func(*nn.Params, T)) []nn.Params {
	if len(vals) == 0 {
		return ps
	}
	out := make([]nn.Params, 0, len(ps)*len(vals))
	for _, p := range ps {
		for _, v := range vals {
			q := p
			set(&q, v)
			out = append(out, q)
		}
	}
	return out
}
