package randomwalk

import (
	"testing"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T, n int) (*System, *rngbank.Bank) {
	t.Helper()
	bank, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(t, err)

	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	ts, err := numat.NewFromRowMajor(numat.F64, n, 1, vals)
	assert.NoError(t, err)

	sys, err := New(ts, 1.0, 0.5, 0, 1, bank, 0, 1)
	assert.NoError(t, err)
	return sys, bank
}

func TestNoiseFreeMeasurementIsIdentity(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t, 101)
	y, err := sys.NoiseFreeMeasurement(1, []float64{3.5})
	assert.NoError(err)
	assert.Equal(3.5, y[0])
}

func TestParametersIsProcessNoise(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t, 101)
	assert.Equal([]float64{1.0}, sys.Parameters().RawRowMajor())
}

func TestNextStateWithParamsFallsBackWhenParamsEmpty(t *testing.T) {
	sys, _ := setup(t, 101)
	// an empty or malformed-length params slice must not panic or error; it
	// falls back to the system's own ProcessNoise.
	_, err := sys.NextStateWithParams(2, []float64{0}, nil, nil)
	assert.NoError(t, err)
	_, err = sys.NextStateWithParams(2, []float64{0}, nil, []float64{99, 99, 99})
	assert.NoError(t, err)
}

func TestNextStateWithParamsOverridesProcessVariance(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t, 101)
	// a near-zero process variance override collapses the transition to
	// (almost) noise-free, proving params[0] reaches the sampled draw
	// rather than being ignored in favor of the system's own ProcessNoise.
	next, err := sys.NextStateWithParams(2, []float64{3.5}, nil, []float64{1e-8})
	assert.NoError(err)
	assert.InDelta(3.5, next[0], 0.01)
}

func TestSimulateWithInitialStatePopulatesTrajectory(t *testing.T) {
	assert := assert.New(t)

	bank, err := rngbank.NewBank(rngbank.MinSlots, 1, 2)
	assert.NoError(err)

	vals := make([]float64, 101)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	ts, err := numat.NewFromRowMajor(numat.F64, 101, 1, vals)
	assert.NoError(err)

	sys, err := New(ts, 1.0, 1.0, 0, 1, bank, 0, 1)
	assert.NoError(err)

	err = sys.SimulateWithInitialState([]float64{0}, nil)
	assert.NoError(err)

	w, _ := sys.X().Dims()
	assert.Equal(101, w)
}
