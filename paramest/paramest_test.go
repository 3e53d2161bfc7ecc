package paramest

import (
	"math"
	"testing"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pf"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system/randomwalk"
	"github.com/milosgajdos/go-smcfilter/system/simple"
	"github.com/stretchr/testify/assert"
)

func timeGrid(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func newSimpleFilter(t *testing.T, n, horizon int) (*pf.Filter, *simple.System) {
	t.Helper()
	bank, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(t, err)

	ts, err := numat.NewFromRowMajor(numat.F64, horizon, 1, timeGrid(horizon))
	assert.NoError(t, err)

	sys, err := simple.New(ts, 0.5, 25, 8, 10, 1, 0, 5, bank, 0, 1)
	assert.NoError(t, err)
	assert.NoError(t, sys.SimulateWithInitialState([]float64{0}, nil))

	f, err := pf.NewFilter(n, sys, pf.Systematic)
	assert.NoError(t, err)
	assert.NoError(t, f.Initialize())
	return f, sys
}

func TestAuxiliaryPFReturnsParamEstimateForEveryStep(t *testing.T) {
	assert := assert.New(t)

	f, _ := newSimpleFilter(t, 200, 20)
	thetaEst, err := AuxiliaryPF(f, 10)
	assert.NoError(err)

	w, h := thetaEst.Dims()
	assert.Equal(20, w)
	assert.Equal(3, h)

	for i := 1; i <= w; i++ {
		for j := 1; j <= h; j++ {
			v, err := thetaEst.At(j, i)
			assert.NoError(err)
			assert.False(isNaNOrInf(v))
		}
	}
}

func TestMeasurementComparisonReturnsParamEstimateForEveryStep(t *testing.T) {
	assert := assert.New(t)

	f, _ := newSimpleFilter(t, 200, 20)
	thetaEst, err := MeasurementComparison(f)
	assert.NoError(err)

	w, h := thetaEst.Dims()
	assert.Equal(20, w)
	assert.Equal(3, h)
}

func TestSPSAPathStartsAtSystemParameters(t *testing.T) {
	assert := assert.New(t)

	f, _ := newSimpleFilter(t, 100, 15)
	cfg := SPSAConfig{
		Alpha: 0.602, Gamma: 0.101,
		A0: 0.05, C0: 0.1, ABig: 5,
		IterationLimit: 3,
	}
	path, err := SPSA(f, cfg)
	assert.NoError(err)

	w, h := path.Dims()
	assert.Equal(4, w)
	assert.Equal(3, h)

	params, err := columnValues(path, 1)
	assert.NoError(err)
	assert.Equal([]float64{0.5, 25, 8}, params)
}

// TestSPSARandomWalkProcessVarianceConverges pins the SPSA concrete
// scenario: RandomWalk process variance truth=1.0, SPSA started at
// theta=5.0 with alpha=0.602, gamma=0.101, a=0.16, c=0.1, A=10, 200
// iterations; the final iterate must land within 0.5 of the truth.
func TestSPSARandomWalkProcessVarianceConverges(t *testing.T) {
	assert := assert.New(t)

	bank, err := rngbank.NewBank(rngbank.MinSlots, 521288629, 362436069)
	assert.NoError(err)

	ts, err := numat.NewFromRowMajor(numat.F64, 101, 1, timeGrid(101))
	assert.NoError(err)

	sys, err := randomwalk.New(ts, 1.0, 1.0, 0, 1, bank, 0, 1)
	assert.NoError(err)
	assert.NoError(sys.SimulateWithInitialState([]float64{0}, nil))

	f, err := pf.NewFilter(200, sys, pf.Systematic)
	assert.NoError(err)
	assert.NoError(f.Initialize())

	cfg := SPSAConfig{
		Alpha: 0.602, Gamma: 0.101,
		A0: 0.16, C0: 0.1, ABig: 10,
		IterationLimit: 200,
		InitialParams:  []float64{5.0},
	}
	path, err := SPSA(f, cfg)
	assert.NoError(err)

	w, _ := path.Dims()
	thetaFinal, err := path.At(1, w)
	assert.NoError(err)

	assert.Less(math.Abs(thetaFinal-1.0), 0.5)
}

func isNaNOrInf(v float64) bool {
	return v != v || v > 1e300 || v < -1e300
}
