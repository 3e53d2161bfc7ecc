package simple

import (
	"math"
	"testing"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T) (*System, *rngbank.Bank) {
	t.Helper()
	bank, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(t, err)

	ts, err := numat.NewFromRowMajor(numat.F64, 60, 1, timeGrid(60))
	assert.NoError(t, err)

	sys, err := New(ts, 0.5, 25, 8, 10, 1, 0, 5, bank, 0, 1)
	assert.NoError(t, err)
	return sys, bank
}

func timeGrid(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestNewSimpleSystemDims(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	dimX, dimU, dimY, dimXNoise, dimYNoise := sys.Dims()
	assert.Equal(1, dimX)
	assert.Equal(0, dimU)
	assert.Equal(1, dimY)
	assert.Equal(1, dimXNoise)
	assert.Equal(1, dimYNoise)
}

func TestNoiseFreeMeasurement(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	y, err := sys.NoiseFreeMeasurement(1, []float64{10})
	assert.NoError(err)
	assert.InDelta(5.0, y[0], 1e-9)
}

func TestNextStateWithParamsOverridesCoefficients(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	x1, err := sys.NextStateWithParams(2, []float64{1}, nil, []float64{0, 0, 0})
	assert.NoError(err)
	// with phi1=phi2=phi3=0, the recurrence contributes nothing but noise
	assert.Len(x1, 1)

	// a fresh system on an identically seeded bank draws the same noise, so
	// the default-coefficient step differs by exactly the deterministic part
	// 0.5*1 + 25*1/2 + 8*cos(1.2*1).
	sys2, _ := setup(t)
	x2, err := sys2.NextState(2, []float64{1}, nil)
	assert.NoError(err)
	assert.InDelta(13+8*math.Cos(1.2), x2[0]-x1[0], 1e-9)
}

func TestMeasurementLogDensitySymmetric(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	lp1, err := sys.MeasurementLogDensity([]float64{1}, []float64{0}, 1, nil)
	assert.NoError(err)
	lp2, err := sys.MeasurementLogDensity([]float64{0}, []float64{1}, 1, nil)
	assert.NoError(err)
	assert.InDelta(lp1, lp2, 1e-9)
}

func TestInitialStateSampleLength(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	x0, err := sys.InitialStateSample()
	assert.NoError(err)
	assert.Len(x0, 1)
}

func TestSimulateWithInitialStatePopulatesTrajectories(t *testing.T) {
	assert := assert.New(t)

	sys, _ := setup(t)
	err := sys.SimulateWithInitialState([]float64{0}, nil)
	assert.NoError(err)

	w, _ := sys.X().Dims()
	assert.Equal(60, w)

	x60, err := sys.X().Col(60)
	assert.NoError(err)
	assert.Len(x60.RawRowMajor(), 1)

	y1, err := sys.Y().Col(1)
	assert.NoError(err)
	assert.Len(y1.RawRowMajor(), 1)
}
