package dist

import (
	"testing"

	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func newTestBank(t *testing.T) *rngbank.Bank {
	b, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(t, err)
	return b
}

func TestNormalSampleDims(t *testing.T) {
	assert := assert.New(t)

	b := newTestBank(t)
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	n, err := NewNormal(b, 0, []float64{1, 2}, cov)
	assert.NoError(err)

	s := n.Sample()
	assert.Len(s, 2)
	assert.Equal([]float64{1, 2}, n.Mean())
}

func TestNormalInvalidCov(t *testing.T) {
	assert := assert.New(t)

	b := newTestBank(t)
	bad := mat.NewSymDense(2, []float64{1, 2, 2, 1}) // not PSD
	n, err := NewNormal(b, 0, []float64{0, 0}, bad)
	assert.Nil(n)
	assert.Error(err)
}

func TestUniformRange(t *testing.T) {
	assert := assert.New(t)

	b := newTestBank(t)
	u, err := NewUniform(b, 1, -1, 1)
	assert.NoError(err)

	for i := 0; i < 100; i++ {
		v := u.Sample()
		assert.True(v >= -1 && v < 1)
	}
}

func TestBinomialRange(t *testing.T) {
	assert := assert.New(t)

	b := newTestBank(t)
	bin, err := NewBinomial(b, 2, 10, 0.5)
	assert.NoError(err)

	for i := 0; i < 50; i++ {
		v := bin.Sample()
		assert.True(v >= 0 && v <= 10)
	}
}

func TestRademacherValues(t *testing.T) {
	assert := assert.New(t)

	b := newTestBank(t)
	v, err := Rademacher(b, 3, 200)
	assert.NoError(err)
	assert.Len(v, 200)

	seenPos, seenNeg := false, false
	for _, x := range v {
		assert.True(x == 1 || x == -1)
		if x == 1 {
			seenPos = true
		} else {
			seenNeg = true
		}
	}
	assert.True(seenPos)
	assert.True(seenNeg)
}
