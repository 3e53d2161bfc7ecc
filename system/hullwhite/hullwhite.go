// Package hullwhite implements the Hull-White one-factor short-rate system
// (spec.md §4.1, grounded on original_source/HullWhiteOne.h's mrs/vol/
// lambda/volBSRM/maturity/initialTS fields): a single Ornstein-Uhlenbeck
// factor x(t) driving a vector of model-implied spot rates observed across
// several maturities, calibrated against a user-supplied initial term
// structure.
//
// The initial term structure is fit with a cubic spline
// (gonum.org/v1/gonum/interp), generalizing CubicSpline2D from the original
// header to gonum's Fittable interpolator interface.
package hullwhite

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/dist"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// System is the HullWhiteOne reference model: a single-factor short-rate
// process observed through a vector of spot rates at fixed maturities.
type System struct {
	*system.Base

	MeanRevertSpeed float64 // mrs
	Vol             float64
	Lambda          float64 // EWMA decay across maturities, 0 < Lambda
	VolBSRM         float64 // noise scale at the benchmark spot rate maturity

	Maturities []float64 // tau_1..tau_ydim, the observed spot rate tenors
	benchIdx   int        // index of the benchmark maturity (shortest tenor)

	termStructure interp.NaturalCubic // fit to (maturity, initial spot rate)
}

// New creates a HullWhiteOne system. maturities and initialTS must have
// equal, strictly increasing-in-maturity length numInitialSR; the resulting
// system observes a ydim-vector of spot rates at ydim of those maturities
// (ydim <= numInitialSR), evaluated by interpolating/extrapolating the fit
// term structure.
func New(timeSpan *numat.Matrix, mrs, vol, lambda, volBSRM float64, maturities, initialTS []float64, ydim int, bank *rngbank.Bank, xNoiseSlot, yNoiseSlot int) (*System, error) {
	if len(maturities) != len(initialTS) || len(maturities) < 2 {
		return nil, fmt.Errorf("maturities and initialTS must be equal length >= 2, got %d and %d: %w", len(maturities), len(initialTS), pferrors.ErrShapeMismatch)
	}
	if ydim < 1 || ydim > len(maturities) {
		return nil, fmt.Errorf("ydim %d out of range for %d maturities: %w", ydim, len(maturities), pferrors.ErrParameterOutOfDomain)
	}

	var ts interp.NaturalCubic
	if err := ts.Fit(maturities, initialTS); err != nil {
		return nil, fmt.Errorf("fitting initial term structure: %w", err)
	}

	base, err := system.NewBase(1, 0, ydim, 1, ydim, timeSpan, nil, bank, xNoiseSlot, yNoiseSlot)
	if err != nil {
		return nil, err
	}

	return &System{
		Base:            base,
		MeanRevertSpeed: mrs,
		Vol:             vol,
		Lambda:          lambda,
		VolBSRM:         volBSRM,
		Maturities:      maturities[:ydim],
		benchIdx:        0,
		termStructure:   ts,
	}, nil
}

func (s *System) timeAt(i int) (float64, error) { return s.TimeSpan().At(1, i) }

// initialTermStructure evaluates the fitted initial spot rate curve at
// maturity t, extrapolating flat past the fitted domain's last knot.
func (s *System) initialTermStructure(t float64) float64 {
	return s.termStructure.Predict(t)
}

// forwardRate approximates the instantaneous forward rate f(0,t) = R(t) +
// t*R'(t) from the fitted spot curve via a centered finite difference.
func (s *System) forwardRate(t float64) float64 {
	const h = 1e-4
	r := s.initialTermStructure(t)
	rUp := s.initialTermStructure(t + h)
	rDown := s.initialTermStructure(math.Max(t-h, 0))
	deriv := (rUp - rDown) / (2 * h)
	return r + t*deriv
}

// ShortRateForOUPState converts an Ornstein-Uhlenbeck factor value into a
// short rate at calendar time t via the standard Hull-White decomposition
// r(t) = x(t) + f(0,t) + vol^2/(2*mrs^2) * (1 - exp(-mrs*t))^2.
func (s *System) ShortRateForOUPState(oup, t float64) float64 {
	a := s.MeanRevertSpeed
	if a == 0 {
		return oup + s.forwardRate(t)
	}
	conv := (s.Vol * s.Vol / (2 * a * a)) * math.Pow(1-math.Exp(-a*t), 2)
	return oup + s.forwardRate(t) + conv
}

// spotRate returns the model-implied spot rate for the zero maturing at
// calendar time t+tau, given the factor value oup at time t, using the
// Hull-White affine bond-price formula's B(t,T) loading.
func (s *System) spotRate(oup, t, tau float64) float64 {
	if tau <= 0 {
		return s.ShortRateForOUPState(oup, t)
	}
	a := s.MeanRevertSpeed
	var b float64
	if a == 0 {
		b = tau
	} else {
		b = (1 - math.Exp(-a*tau)) / a
	}
	fwd0T := s.forwardRate(t + tau)
	// affine yield: short-rate mean level plus factor loading, scaled by tau
	return fwd0T + (b/tau)*(oup-s.forwardRate(t))
}

// NextState advances the OU factor via its exact discrete-time transition:
// x(t_i) = x(t_{i-1})*exp(-mrs*dt) + noise with variance
// vol^2*(1-exp(-2*mrs*dt))/(2*mrs).
func (s *System) NextState(i int, x, u []float64) ([]float64, error) {
	return s.nextState(i, x, s.MeanRevertSpeed, s.Vol)
}

// NextStateWithParams evaluates the transition under hypothetical
// {mrs, vol} without mutating the system's own parameters.
func (s *System) NextStateWithParams(i int, x, u, params []float64) ([]float64, error) {
	mrs, vol := s.MeanRevertSpeed, s.Vol
	if len(params) == 2 {
		mrs, vol = params[0], params[1]
	}
	return s.nextState(i, x, mrs, vol)
}

func (s *System) nextState(i int, x []float64, mrs, vol float64) ([]float64, error) {
	tPrev, err := s.timeAt(i - 1)
	if err != nil {
		return nil, err
	}
	tCur, err := s.timeAt(i)
	if err != nil {
		return nil, err
	}
	dt := tCur - tPrev

	decay := math.Exp(-mrs * dt)
	var varTerm float64
	if mrs == 0 {
		varTerm = vol * vol * dt
	} else {
		varTerm = vol * vol * (1 - math.Exp(-2*mrs*dt)) / (2 * mrs)
	}

	xSlot, _ := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{varTerm})
	n, err := dist.NewNormal(s.Bank(), xSlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	return []float64{x[0]*decay + n.Sample()[0]}, nil
}

// NoiseFreeMeasurement returns the model-implied spot rate vector across
// s.Maturities given the current factor value and calendar time t_i.
func (s *System) NoiseFreeMeasurement(i int, x []float64) ([]float64, error) {
	t, err := s.timeAt(i)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s.Maturities))
	for j, tau := range s.Maturities {
		out[j] = s.spotRate(x[0], t, tau)
	}
	return out, nil
}

// Measurement returns the noise-free spot rate vector plus independent
// Gaussian noise per maturity, scaled from VolBSRM by Lambda^|j-benchIdx|
// (original header's lambda/volBSRM EWMA weighting across tenors).
func (s *System) Measurement(i int, x, params []float64) ([]float64, error) {
	y, err := s.NoiseFreeMeasurement(i, x)
	if err != nil {
		return nil, err
	}
	_, ySlot := s.RNGSlots()
	out := make([]float64, len(y))
	for j := range y {
		v := s.noiseVarianceAt(j)
		cov := mat.NewSymDense(1, []float64{v})
		n, err := dist.NewNormal(s.Bank(), ySlot, []float64{0}, cov)
		if err != nil {
			return nil, err
		}
		out[j] = y[j] + n.Sample()[0]
	}
	return out, nil
}

func (s *System) noiseVarianceAt(j int) float64 {
	tenorDist := math.Abs(float64(j - s.benchIdx))
	return s.VolBSRM * s.VolBSRM * math.Pow(s.Lambda, tenorDist)
}

// MeasurementLogDensity is the independent-per-maturity Gaussian log-density
// of y - yPred, weighted by the same EWMA variance schedule as Measurement.
func (s *System) MeasurementLogDensity(y, yPred []float64, i int, params []float64) (float64, error) {
	if len(y) != len(yPred) {
		return 0, fmt.Errorf("measurement length %d, predicted length %d: %w", len(y), len(yPred), pferrors.ErrShapeMismatch)
	}
	total := 0.0
	for j := range y {
		v := s.noiseVarianceAt(j)
		cov := mat.NewSymDense(1, []float64{v})
		n, err := dist.NewNormalDensity([]float64{yPred[j]}, cov)
		if err != nil {
			return 0, err
		}
		total += n.LogProb([]float64{y[j]})
	}
	return total, nil
}

// InitialStateSample draws the initial OU factor from Normal(0,
// vol^2/(2*mrs)), its stationary distribution (or Normal(0, 1) if mrs <= 0).
func (s *System) InitialStateSample() ([]float64, error) {
	var v float64
	if s.MeanRevertSpeed > 0 {
		v = s.Vol * s.Vol / (2 * s.MeanRevertSpeed)
	} else {
		v = 1
	}
	xSlot, _ := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{v})
	n, err := dist.NewNormal(s.Bank(), xSlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	return n.Sample(), nil
}

// SimulateWithInitialState generates a ground-truth factor trajectory and
// spot-rate observations from x0 (see system.Simulate).
func (s *System) SimulateWithInitialState(x0, u []float64) error {
	return system.Simulate(s, x0, u)
}
