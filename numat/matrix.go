// Package numat implements a dense, typed 2-D numeric container in the
// spirit of matrix/matrix.go in the teacher repo: plain row/column helpers
// built on top of gonum's floats package, generalized here to the fixed set
// of element-type tags the particle-filter engine exchanges with its
// caller. All public indices are 1-based, matching the original
// MathMatrix's (r, c) convention.
package numat

import (
	"fmt"
	"math"
	"sort"

	"github.com/milosgajdos/go-smcfilter/pferrors"
	"gonum.org/v1/gonum/floats"
)

// Kind is the element type tag a Matrix is constructed with. It is
// immutable once the Matrix is created.
type Kind int

const (
	I8 Kind = iota
	U8
	I32
	U32
	F32
	F64
)

func (k Kind) String() string {
	switch k {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// Matrix is a dense, rectangular, typed numeric container of width W and
// height H. Values are stored internally as float64 regardless of Kind;
// Kind only governs which typed accessor is legal and how values are
// truncated/clamped on write, the same way the original MathMatrix used a
// single type tag to dispatch into a void* backing store.
type Matrix struct {
	kind   Kind
	w, h   int
	data   []float64 // row-major, len == w*h
}

// New allocates a zero-initialized W x H matrix of the given element type.
func New(kind Kind, width, height int) (*Matrix, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid matrix dimensions [%d x %d]: %w", width, height, pferrors.ErrParameterOutOfDomain)
	}
	return &Matrix{
		kind: kind,
		w:    width,
		h:    height,
		data: make([]float64, width*height),
	}, nil
}

// NewFromRowMajor allocates a W x H matrix of the given Kind populated from
// a row-major slice of length W*H.
func NewFromRowMajor(kind Kind, width, height int, vals []float64) (*Matrix, error) {
	m, err := New(kind, width, height)
	if err != nil {
		return nil, err
	}
	if len(vals) != width*height {
		return nil, fmt.Errorf("invalid value count %d for [%d x %d]: %w", len(vals), width, height, pferrors.ErrShapeMismatch)
	}
	copy(m.data, vals)
	m.clampAll()
	return m, nil
}

// Kind returns the matrix's fixed element type tag.
func (m *Matrix) Kind() Kind { return m.kind }

// Dims returns the matrix width and height.
func (m *Matrix) Dims() (width, height int) { return m.w, m.h }

func (m *Matrix) idx(r, c int) (int, error) {
	if r < 1 || r > m.h || c < 1 || c > m.w {
		return 0, fmt.Errorf("index (%d, %d) out of range for [%d x %d]: %w", r, c, m.w, m.h, pferrors.ErrIndexOutOfRange)
	}
	return (r-1)*m.w + (c - 1), nil
}

// At returns the value at 1-based row r, column c.
func (m *Matrix) At(r, c int) (float64, error) {
	i, err := m.idx(r, c)
	if err != nil {
		return 0, err
	}
	return m.data[i], nil
}

// Set writes val at 1-based row r, column c, truncating/clamping it to the
// matrix's element Kind.
func (m *Matrix) Set(r, c int, val float64) error {
	i, err := m.idx(r, c)
	if err != nil {
		return err
	}
	m.data[i] = clamp(m.kind, val)
	return nil
}

// TypedAt returns the value at (r, c) only if kind matches the matrix's own
// Kind; otherwise it returns ErrTypeMismatch.
func (m *Matrix) TypedAt(kind Kind, r, c int) (float64, error) {
	if kind != m.kind {
		return 0, fmt.Errorf("accessor kind %s does not match matrix kind %s: %w", kind, m.kind, pferrors.ErrTypeMismatch)
	}
	return m.At(r, c)
}

// Row returns a copy of 1-based row r as a 1 x W vector Matrix.
func (m *Matrix) Row(r int) (*Matrix, error) {
	if r < 1 || r > m.h {
		return nil, fmt.Errorf("row %d out of range for height %d: %w", r, m.h, pferrors.ErrIndexOutOfRange)
	}
	out, _ := New(m.kind, m.w, 1)
	copy(out.data, m.data[(r-1)*m.w:r*m.w])
	return out, nil
}

// Col returns a copy of 1-based column c as a H x 1 vector Matrix.
func (m *Matrix) Col(c int) (*Matrix, error) {
	if c < 1 || c > m.w {
		return nil, fmt.Errorf("column %d out of range for width %d: %w", c, m.w, pferrors.ErrIndexOutOfRange)
	}
	out, _ := New(m.kind, 1, m.h)
	for r := 0; r < m.h; r++ {
		out.data[r] = m.data[r*m.w+(c-1)]
	}
	return out, nil
}

// SetRow overwrites 1-based row r with v, a 1 x W (or W x 1) vector of the
// same Kind and matching width. It returns ErrShapeMismatch on a dimension
// mismatch and ErrTypeMismatch on a Kind mismatch.
func (m *Matrix) SetRow(r int, v *Matrix) error {
	if r < 1 || r > m.h {
		return fmt.Errorf("row %d out of range for height %d: %w", r, m.h, pferrors.ErrIndexOutOfRange)
	}
	vals, err := v.flatVector(m.w)
	if err != nil {
		return err
	}
	if v.kind != m.kind {
		return fmt.Errorf("vector kind %s does not match matrix kind %s: %w", v.kind, m.kind, pferrors.ErrTypeMismatch)
	}
	copy(m.data[(r-1)*m.w:r*m.w], vals)
	return nil
}

// SetCol overwrites 1-based column c with v, a H x 1 (or 1 x H) vector of
// the same Kind and matching height. It returns ErrShapeMismatch on a
// dimension mismatch.
func (m *Matrix) SetCol(c int, v *Matrix) error {
	if c < 1 || c > m.w {
		return fmt.Errorf("column %d out of range for width %d: %w", c, m.w, pferrors.ErrIndexOutOfRange)
	}
	vals, err := v.flatVector(m.h)
	if err != nil {
		return err
	}
	if v.kind != m.kind {
		return fmt.Errorf("vector kind %s does not match matrix kind %s: %w", v.kind, m.kind, pferrors.ErrTypeMismatch)
	}
	for r := 0; r < m.h; r++ {
		m.data[r*m.w+(c-1)] = vals[r]
	}
	return nil
}

// flatVector returns v's values as a flat slice, requiring that v be a
// vector (W==1 xor H==1) of the given length n.
func (v *Matrix) flatVector(n int) ([]float64, error) {
	isRow := v.h == 1
	isCol := v.w == 1
	if !isRow && !isCol {
		return nil, fmt.Errorf("expected a vector, got [%d x %d]: %w", v.w, v.h, pferrors.ErrShapeMismatch)
	}
	if len(v.data) != n {
		return nil, fmt.Errorf("expected length %d, got %d: %w", n, len(v.data), pferrors.ErrShapeMismatch)
	}
	return v.data, nil
}

// RankOfElements returns a matrix of the same shape where each element is
// replaced by its 1-based rank within the flattened (row-major) sequence of
// values, ties broken by position.
func (m *Matrix) RankOfElements() (*Matrix, error) {
	n := len(m.data)
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return m.data[idxs[a]] < m.data[idxs[b]] })

	ranks := make([]float64, n)
	for rank, i := range idxs {
		ranks[i] = float64(rank + 1)
	}

	out, _ := New(F64, m.w, m.h)
	copy(out.data, ranks)
	return out, nil
}

// ScaleInPlace multiplies every element by s.
func (m *Matrix) ScaleInPlace(s float64) {
	floats.Scale(s, m.data)
	m.clampAll()
}

// AddInPlace adds other into m element-wise. It returns ErrShapeMismatch if
// the shapes differ and ErrTypeMismatch if the Kinds differ.
func (m *Matrix) AddInPlace(other *Matrix) error {
	if err := m.requireSameShape(other); err != nil {
		return err
	}
	floats.Add(m.data, other.data)
	m.clampAll()
	return nil
}

// SubInPlace subtracts other from m element-wise. It returns
// ErrShapeMismatch if the shapes differ and ErrTypeMismatch if the Kinds
// differ.
func (m *Matrix) SubInPlace(other *Matrix) error {
	if err := m.requireSameShape(other); err != nil {
		return err
	}
	floats.Sub(m.data, other.data)
	m.clampAll()
	return nil
}

func (m *Matrix) requireSameShape(other *Matrix) error {
	if m.w != other.w || m.h != other.h {
		return fmt.Errorf("shape [%d x %d] vs [%d x %d]: %w", m.w, m.h, other.w, other.h, pferrors.ErrShapeMismatch)
	}
	if m.kind != other.kind {
		return fmt.Errorf("kind %s vs %s: %w", m.kind, other.kind, pferrors.ErrTypeMismatch)
	}
	return nil
}

// RawRowMajor returns the raw row-major backing slice. Callers must not
// retain it past further mutation of m.
func (m *Matrix) RawRowMajor() []float64 { return m.data }

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{kind: m.kind, w: m.w, h: m.h, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

func (m *Matrix) clampAll() {
	if m.kind == F64 || m.kind == F32 {
		return
	}
	for i, v := range m.data {
		m.data[i] = clamp(m.kind, v)
	}
}

func clamp(kind Kind, v float64) float64 {
	switch kind {
	case F64, F32:
		return v
	case I8:
		return math.Trunc(clampRange(v, -128, 127))
	case U8:
		return math.Trunc(clampRange(v, 0, 255))
	case I32:
		return math.Trunc(clampRange(v, math.MinInt32, math.MaxInt32))
	case U32:
		return math.Trunc(clampRange(v, 0, math.MaxUint32))
	default:
		return v
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Fix rounds every element of v toward zero, replicating the original
// MathUtil.Fix's specified-but-never-implemented semantics (spec.md Open
// Question (a)). No estimator path in this module calls it; it is provided
// for callers that need the exact behavior described in the spec.
func Fix(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Trunc(x)
	}
	return out
}
