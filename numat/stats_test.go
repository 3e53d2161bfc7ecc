package numat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedColMean(t *testing.T) {
	assert := assert.New(t)

	m, _ := NewFromRowMajor(F64, 3, 2, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	w := []float64{0.2, 0.3, 0.5}

	mean, err := WeightedColMean(m, w)
	assert.NoError(err)
	assert.InDelta(0.2*1+0.3*2+0.5*3, mean[0], 1e-9)
	assert.InDelta(0.2*4+0.3*5+0.5*6, mean[1], 1e-9)

	_, err = WeightedColMean(m, []float64{1, 2})
	assert.Error(err)
}

func TestColMeansAndSums(t *testing.T) {
	assert := assert.New(t)

	m, _ := NewFromRowMajor(F64, 2, 3, []float64{
		1, 2,
		3, 4,
		5, 6,
	})

	sums := ColSums(m)
	assert.Equal([]float64{9, 12}, sums)

	means := ColMeans(m)
	assert.InDeltaSlice([]float64{3, 4}, means, 1e-9)
}

func TestColCov(t *testing.T) {
	assert := assert.New(t)

	m, _ := NewFromRowMajor(F64, 4, 2, []float64{
		1, 2, 3, 4,
		2, 4, 6, 8,
	})

	cov, err := ColCov(m)
	assert.NoError(err)
	w, h := cov.Dims()
	assert.Equal(2, w)
	assert.Equal(2, h)

	_, err = ColCov(&Matrix{kind: F64, w: 1, h: 2, data: []float64{1, 2}})
	assert.Error(err)
}
