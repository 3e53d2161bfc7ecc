package numat

import (
	"errors"
	"testing"

	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/stretchr/testify/assert"
)

func TestNewInvalidDims(t *testing.T) {
	assert := assert.New(t)

	m, err := New(F64, 0, 3)
	assert.Nil(m)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrParameterOutOfDomain))
}

func TestSetGetOneBased(t *testing.T) {
	assert := assert.New(t)

	m, err := New(F64, 3, 2)
	assert.NoError(err)

	assert.NoError(m.Set(1, 1, 5.0))
	assert.NoError(m.Set(2, 3, -1.5))

	v, err := m.At(1, 1)
	assert.NoError(err)
	assert.Equal(5.0, v)

	v, err = m.At(2, 3)
	assert.NoError(err)
	assert.Equal(-1.5, v)

	_, err = m.At(0, 1)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrIndexOutOfRange))

	_, err = m.At(1, 4)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrIndexOutOfRange))
}

func TestTypedAtMismatch(t *testing.T) {
	assert := assert.New(t)

	m, _ := New(I32, 2, 2)
	_, err := m.TypedAt(F64, 1, 1)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrTypeMismatch))

	v, err := m.TypedAt(I32, 1, 1)
	assert.NoError(err)
	assert.Equal(0.0, v)
}

func TestRowColAccess(t *testing.T) {
	assert := assert.New(t)

	m, _ := NewFromRowMajor(F64, 3, 2, []float64{1, 2, 3, 4, 5, 6})

	row, err := m.Row(2)
	assert.NoError(err)
	w, h := row.Dims()
	assert.Equal(3, w)
	assert.Equal(1, h)
	v, _ := row.At(1, 2)
	assert.Equal(5.0, v)

	col, err := m.Col(3)
	assert.NoError(err)
	w, h = col.Dims()
	assert.Equal(1, w)
	assert.Equal(2, h)
	v, _ = col.At(2, 1)
	assert.Equal(6.0, v)
}

func TestSetRowSetColShapeMismatch(t *testing.T) {
	assert := assert.New(t)

	m, _ := New(F64, 3, 2)
	bad, _ := New(F64, 2, 1)

	err := m.SetRow(1, bad)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrShapeMismatch))

	good, _ := NewFromRowMajor(F64, 3, 1, []float64{7, 8, 9})
	assert.NoError(m.SetRow(1, good))
	v, _ := m.At(1, 2)
	assert.Equal(8.0, v)

	err = m.SetCol(1, good)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrShapeMismatch))
}

func TestRankOfElements(t *testing.T) {
	assert := assert.New(t)

	m, _ := NewFromRowMajor(F64, 4, 1, []float64{0.5, 1.5, 1.5, 9.9})
	ranks, err := m.RankOfElements()
	assert.NoError(err)

	v1, _ := ranks.At(1, 1)
	v2, _ := ranks.At(1, 2)
	v3, _ := ranks.At(1, 3)
	v4, _ := ranks.At(1, 4)
	assert.Equal(1.0, v1)
	assert.Equal(2.0, v2)
	assert.Equal(3.0, v3)
	assert.Equal(4.0, v4)
}

func TestScaleAddSubInPlace(t *testing.T) {
	assert := assert.New(t)

	a, _ := NewFromRowMajor(F64, 2, 2, []float64{1, 2, 3, 4})
	b, _ := NewFromRowMajor(F64, 2, 2, []float64{1, 1, 1, 1})

	a.ScaleInPlace(2.0)
	v, _ := a.At(1, 1)
	assert.Equal(2.0, v)

	assert.NoError(a.AddInPlace(b))
	v, _ = a.At(2, 2)
	assert.Equal(9.0, v)

	assert.NoError(a.SubInPlace(b))
	v, _ = a.At(2, 2)
	assert.Equal(8.0, v)

	mismatch, _ := New(F64, 3, 3)
	err := a.AddInPlace(mismatch)
	assert.Error(err)
	assert.True(errors.Is(err, pferrors.ErrShapeMismatch))
}

func TestIntKindClamping(t *testing.T) {
	assert := assert.New(t)

	m, _ := New(I8, 1, 1)
	assert.NoError(m.Set(1, 1, 200.0))
	v, _ := m.At(1, 1)
	assert.Equal(127.0, v)
}

func TestFix(t *testing.T) {
	assert := assert.New(t)

	out := Fix([]float64{1.9, -1.9, 0.1, -0.1})
	assert.Equal([]float64{1, -1, 0, 0}, out)
}
