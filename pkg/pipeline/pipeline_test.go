package pipeline

import (
	"math"
	"testing"

	"github.com/hik2833/CSC580WeekSix/pkg/dataprep"
	"github.com/hik2833/CSC580WeekSix/pkg/stats"
)

func TestPipelineFitsOnTrainOnly(t *testing.T) {
	train := [][]float64{{1, 7, math.NaN()}, {3, 7, 2}, {5, 7, 4}}
	p := NewPipeline(dataprep.NewMeanImputer(), dataprep.NewVarianceThreshold(0), stats.NewStandardScaler())
	if err := p.Fit(train); err != nil {
		t.Fatal(err)
	}
	out := p.Transform([][]float64{{3, 100, math.NaN()}})
	if len(out[0]) != 2 {
		t.Fatalf("want 2 columns after dropping the constant one, got %v", out[0])
	}
	// 3 is the train mean of column 0, and NaN is imputed to the train mean 3 of column 2.
	if out[0][0] != 0 || out[0][1] != 0 {
		t.Fatalf("out = %v", out[0])
	}
	if names := p.Names([]string{"a", "b", "c"}); len(names) != 2 || names[1] != "c" {
		t.Fatalf("Names = %v", names)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d", p.Len())
	}
}

func TestPipelineWrapsStepError(t *testing.T) {
	p := NewPipeline(dataprep.NewVarianceThreshold(0))
	if err := p.Fit([][]float64{{1}, {1}}); err == nil {
		t.Fatal("expected error from step")
	}
}
