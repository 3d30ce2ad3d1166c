package stats

import (
	"math"
	"testing"
)

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	s := NewStandardScaler()
	if got := s.Transform(X); &got[0][0] != &X[0][0] {
		t.Fatal("unfitted scaler should return X unchanged")
	}
	if err := s.Fit(X); err != nil {
		t.Fatal(err)
	}
	Y := s.Transform(X)
	if Y[1][0] != 0 || math.Abs(Y[0][0]+1) > 1e-12 || math.Abs(Y[2][0]-1) > 1e-12 {
		t.Fatalf("column 0 = %v %v %v", Y[0][0], Y[1][0], Y[2][0])
	}
	for i := range Y {
		if Y[i][1] != 0 {
			t.Fatalf("constant column should be centred to 0, got %v", Y[i][1])
		}
	}
	if err := s.Fit(nil); err == nil {
		t.Fatal("expected error on empty X")
	}
}
