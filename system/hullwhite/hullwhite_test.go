package hullwhite

import (
	"testing"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T) *System {
	t.Helper()
	bank, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(t, err)

	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = float64(i) * 0.25
	}
	ts, err := numat.NewFromRowMajor(numat.F64, 60, 1, vals)
	assert.NoError(t, err)

	maturities := []float64{0.25, 0.5, 1, 2, 5, 10}
	initialTS := []float64{0.02, 0.022, 0.025, 0.028, 0.031, 0.033}

	sys, err := New(ts, 0.1, 0.01, 0.94, 0.002, maturities, initialTS, 4, bank, 0, 1)
	assert.NoError(t, err)
	return sys
}

func TestNewHullWhiteRejectsMismatchedLengths(t *testing.T) {
	assert := assert.New(t)

	bank, _ := rngbank.NewBank(rngbank.MinSlots, 1, 2)
	ts, _ := numat.NewFromRowMajor(numat.F64, 2, 1, []float64{0, 1})
	_, err := New(ts, 0.1, 0.01, 0.94, 0.002, []float64{1, 2}, []float64{0.02}, 1, bank, 0, 1)
	assert.Error(err)
}

func TestShortRateForOUPStateAddsConvexityAdjustment(t *testing.T) {
	assert := assert.New(t)

	sys := setup(t)
	r0 := sys.ShortRateForOUPState(0, 1)
	r1 := sys.ShortRateForOUPState(0.01, 1)
	assert.True(r1 > r0)
	// with mrs > 0 the zero-factor short rate sits above f(0,t) by the
	// positive convexity term.
	assert.Greater(r0, sys.forwardRate(1))
}

func TestNoiseFreeMeasurementHasMaturityDimension(t *testing.T) {
	assert := assert.New(t)

	sys := setup(t)
	y, err := sys.NoiseFreeMeasurement(1, []float64{0})
	assert.NoError(err)
	assert.Len(y, 4)
}

func TestMeasurementLogDensityShapeMismatch(t *testing.T) {
	assert := assert.New(t)

	sys := setup(t)
	_, err := sys.MeasurementLogDensity([]float64{0.01, 0.02}, []float64{0.01}, 1, nil)
	assert.Error(err)
}

func TestSimulateWithInitialStatePopulatesTrajectory(t *testing.T) {
	assert := assert.New(t)

	sys := setup(t)
	err := sys.SimulateWithInitialState([]float64{0}, nil)
	assert.NoError(err)

	w, _ := sys.X().Dims()
	assert.Equal(60, w)

	y1, err := sys.Y().Col(1)
	assert.NoError(err)
	assert.Len(y1.RawRowMajor(), 4)
}
