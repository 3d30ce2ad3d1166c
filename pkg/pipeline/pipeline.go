package pipeline

import "github.com/pkg/errors"

// Transformer is a preprocessing step fitted on training data only.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) [][]float64
}

// NameSelector is implemented by steps that drop or reorder columns.
type NameSelector interface {
	SelectNames(names []string) []string
}

// Pipeline chains multiple transformers.
type Pipeline struct {
	steps []Transformer
}

func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Fit fits each step on the output of the previous one.
func (p *Pipeline) Fit(X [][]float64) error {
	for i, step := range p.steps {
		if err := step.Fit(X); err != nil {
			return errors.Wrapf(err, "pipeline: step %d", i)
		}
		X = step.Transform(X)
	}
	return nil
}

func (p *Pipeline) Transform(X [][]float64) [][]float64 {
	for _, step := range p.steps {
		X = step.Transform(X)
	}
	return X
}

// Names threads column names through every step that selects columns.
func (p *Pipeline) Names(names []string) []string {
	for _, step := range p.steps {
		if s, ok := step.(NameSelector); ok {
			names = s.SelectNames(names)
		}
	}
	return names
}
