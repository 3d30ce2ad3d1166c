package core

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ErrShape is returned when operand dimensions do not line up.
var ErrShape = errors.New("core: dimension mismatch")

// Matrix is a dense row-major matrix.
type Matrix struct {
	R, C int
	Data []float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{R: r, C: c, Data: make([]float64, r*c)}
}

// FromSlice creates a Matrix from a nested slice (copies the data).
func FromSlice(a [][]float64) *Matrix {
	r := len(a)
	if r == 0 {
		return &Matrix{}
	}
	c := len(a[0])
	m := NewMatrix(r, c)
	for i := 0; i < r; i++ {
		copy(m.Data[i*c:(i+1)*c], a[i])
	}
	return m
}

// Rows gathers the given rows of a into a new matrix.
func Rows(a [][]float64, idx []int) *Matrix {
	if len(idx) == 0 || len(a) == 0 {
		return &Matrix{}
	}
	c := len(a[idx[0]])
	m := NewMatrix(len(idx), c)
	for i, k := range idx {
		copy(m.Data[i*c:(i+1)*c], a[k])
	}
	return m
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.C+j] }

// Set sets element (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.C+j] = v }

// Clone deep copies the matrix.
func (m *Matrix) Clone() *Matrix {
	n := &Matrix{R: m.R, C: m.C, Data: make([]float64, len(m.Data))}
	copy(n.Data, m.Data)
	return n
}

// parallelRows below this many rows is done inline.
const parallelRows = 64

// MatMul returns A·B. Rows of the result are computed on GOMAXPROCS workers.
func MatMul(A, B *Matrix) (*Matrix, error) {
	if A.C != B.R {
		return nil, errors.Wrapf(ErrShape, "matmul %dx%d · %dx%d", A.R, A.C, B.R, B.C)
	}
	C := NewMatrix(A.R, B.C)
	mulRows := func(rs, re int) {
		for i := rs; i < re; i++ {
			ci := C.Data[i*C.C : (i+1)*C.C]
			for k := 0; k < A.C; k++ {
				ai := A.Data[i*A.C+k]
				if ai == 0 {
					continue
				}
				bk := B.Data[k*B.C : (k+1)*B.C]
				for j, b := range bk {
					ci[j] += ai * b
				}
			}
		}
	}
	if A.R < parallelRows {
		mulRows(0, A.R)
		return C, nil
	}

	workers := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	rowsPerWorker := (A.R + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, A.R)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(rs, re int) {
			defer wg.Done()
			mulRows(rs, re)
		}(start, end)
	}
	wg.Wait()
	return C, nil
}

// MatMulTransA returns Aᵀ·B without materializing the transpose.
func MatMulTransA(A, B *Matrix) (*Matrix, error) {
	if A.R != B.R {
		return nil, errors.Wrapf(ErrShape, "matmul %dx%dᵀ · %dx%d", A.R, A.C, B.R, B.C)
	}
	C := NewMatrix(A.C, B.C)
	for k := 0; k < A.R; k++ {
		ak := A.Data[k*A.C : (k+1)*A.C]
		bk := B.Data[k*B.C : (k+1)*B.C]
		for i, a := range ak {
			if a == 0 {
				continue
			}
			ci := C.Data[i*C.C : (i+1)*C.C]
			for j, b := range bk {
				ci[j] += a * b
			}
		}
	}
	return C, nil
}

// MatMulTransB returns A·Bᵀ without materializing the transpose.
func MatMulTransB(A, B *Matrix) (*Matrix, error) {
	if A.C != B.C {
		return nil, errors.Wrapf(ErrShape, "matmul %dx%d · %dx%dᵀ", A.R, A.C, B.R, B.C)
	}
	C := NewMatrix(A.R, B.R)
	for i := 0; i < A.R; i++ {
		ai := A.Data[i*A.C : (i+1)*A.C]
		for j := 0; j < B.R; j++ {
			bj := B.Data[j*B.C : (j+1)*B.C]
			s := 0.0
			for k, a := range ai {
				s += a * bj[k]
			}
			C.Data[i*C.C+j] = s
		}
	}
	return C, nil
}

// Hadamard multiplies m by B element-wise in place.
func (m *Matrix) Hadamard(B *Matrix) error {
	if m.R != B.R || m.C != B.C {
		return ErrShape
	}
	for i := range m.Data {
		m.Data[i] *= B.Data[i]
	}
	return nil
}

// AddRowVector adds v to every row in place.
func (m *Matrix) AddRowVector(v []float64) error {
	if len(v) != m.C {
		return ErrShape
	}
	for i := 0; i < m.R; i++ {
		row := m.Data[i*m.C : (i+1)*m.C]
		for j := range row {
			row[j] += v[j]
		}
	}
	return nil
}

// ColSums returns the sum of each column.
func (m *Matrix) ColSums() []float64 {
	out := make([]float64, m.C)
	for i := 0; i < m.R; i++ {
		row := m.Data[i*m.C : (i+1)*m.C]
		for j, v := range row {
			out[j] += v
		}
	}
	return out
}

// Apply applies f element-wise in place.
func (m *Matrix) Apply(f func(float64) float64) {
	for i := 0; i < len(m.Data); i++ {
		m.Data[i] = f(m.Data[i])
	}
}
