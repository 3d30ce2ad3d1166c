package core

import (
	"testing"

	"github.com/pkg/errors"
)

func TestMatMul(t *testing.T) {
	A := FromSlice([][]float64{{1, 2, 3}, {4, 5, 6}})
	B := FromSlice([][]float64{{7, 8}, {9, 10}, {11, 12}})
	C, err := MatMul(A, B)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{58, 64, 139, 154}
	for i, v := range want {
		if C.Data[i] != v {
			t.Fatalf("C.Data[%d] = %v, want %v", i, C.Data[i], v)
		}
	}
}

func TestMatMulParallelMatchesSerial(t *testing.T) {
	A := NewMatrix(200, 7)
	B := NewMatrix(7, 3)
	for i := range A.Data {
		A.Data[i] = float64(i%13) - 6
	}
	for i := range B.Data {
		B.Data[i] = float64(i) * 0.5
	}
	C, err := MatMul(A, B)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < A.R; i++ {
		for j := 0; j < B.C; j++ {
			s := 0.0
			for k := 0; k < A.C; k++ {
				s += A.At(i, k) * B.At(k, j)
			}
			if C.At(i, j) != s {
				t.Fatalf("C(%d,%d) = %v, want %v", i, j, C.At(i, j), s)
			}
		}
	}
}

func transpose(m *Matrix) *Matrix {
	t := NewMatrix(m.C, m.R)
	for i := 0; i < m.R; i++ {
		for j := 0; j < m.C; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

func TestTransposedProducts(t *testing.T) {
	A := FromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}})
	B := FromSlice([][]float64{{1, 0}, {0, 1}, {1, 1}})

	got, err := MatMulTransA(A, B)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := MatMul(transpose(A), B)
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("MatMulTransA mismatch at %d: %v vs %v", i, got.Data[i], want.Data[i])
		}
	}

	got, err = MatMulTransB(A, B)
	if err != nil {
		t.Fatal(err)
	}
	want, _ = MatMul(A, transpose(B))
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("MatMulTransB mismatch at %d: %v vs %v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestShapeErrors(t *testing.T) {
	A := NewMatrix(2, 3)
	B := NewMatrix(2, 3)
	if _, err := MatMul(A, B); !errors.Is(err, ErrShape) {
		t.Fatalf("MatMul err = %v, want ErrShape", err)
	}
	if err := A.AddRowVector([]float64{1}); err != ErrShape {
		t.Fatalf("AddRowVector err = %v, want ErrShape", err)
	}
}

func TestRowHelpers(t *testing.T) {
	m := Rows([][]float64{{1, 2}, {3, 4}, {5, 6}}, []int{2, 0})
	if m.R != 2 || m.At(0, 0) != 5 || m.At(1, 1) != 2 {
		t.Fatalf("Rows gathered %v", m.Data)
	}
	if err := m.AddRowVector([]float64{1, 1}); err != nil {
		t.Fatal(err)
	}
	sums := m.ColSums()
	if sums[0] != 8 || sums[1] != 10 {
		t.Fatalf("ColSums = %v", sums)
	}
	m.Set(0, 0, -1)
	if m.At(0, 0) != -1 {
		t.Fatal("Set did not write")
	}
}
