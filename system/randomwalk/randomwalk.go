// Package randomwalk implements the plain additive random-walk system
// (spec.md §4.1, grounded on original_source/RandomWalk.h's processNoise
// and measurementNoise fields):
//
//	x(t+1) = x(t) + v(t)
//	y(t)   = x(t) + w(t)
//
// with independently configurable process- and measurement-noise
// variances. It is the simplest GenericSystem implementation and is used
// throughout pf's tests as a tractable convergence scenario.
package randomwalk

import (
	"github.com/milosgajdos/go-smcfilter/dist"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system"
	"gonum.org/v1/gonum/mat"
)

// System is the RandomWalk reference model.
type System struct {
	*system.Base

	ProcessNoise     float64
	MeasurementNoise float64
	InitMean         float64
	InitVar          float64
}

// New creates a RandomWalk system over the given time grid. Its process
// noise variance is the system's sole estimable parameter (spec.md §4.3
// concrete scenario 5: SPSA recovering RandomWalk process variance).
func New(timeSpan *numat.Matrix, processNoise, measurementNoise, initMean, initVar float64, bank *rngbank.Bank, xNoiseSlot, yNoiseSlot int) (*System, error) {
	params, err := numat.NewFromRowMajor(numat.F64, 1, 1, []float64{processNoise})
	if err != nil {
		return nil, err
	}
	base, err := system.NewBase(1, 0, 1, 1, 1, timeSpan, params, bank, xNoiseSlot, yNoiseSlot)
	if err != nil {
		return nil, err
	}
	return &System{
		Base:             base,
		ProcessNoise:     processNoise,
		MeasurementNoise: measurementNoise,
		InitMean:         initMean,
		InitVar:          initVar,
	}, nil
}

// NextState draws x(t_i) = x(t_{i-1}) + v, v ~ Normal(0, ProcessNoise).
func (s *System) NextState(i int, x, u []float64) ([]float64, error) {
	return s.nextState(x, s.ProcessNoise)
}

// NextStateWithParams evaluates the transition under a hypothetical process
// noise variance params[0], without mutating the system's own ProcessNoise,
// falling back to ProcessNoise when params does not have exactly one
// element.
func (s *System) NextStateWithParams(i int, x, u, params []float64) ([]float64, error) {
	processVar := s.ProcessNoise
	if len(params) == 1 {
		processVar = params[0]
	}
	return s.nextState(x, processVar)
}

func (s *System) nextState(x []float64, processVar float64) ([]float64, error) {
	xSlot, _ := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{processVar})
	n, err := dist.NewNormal(s.Bank(), xSlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	return []float64{x[0] + n.Sample()[0]}, nil
}

// NoiseFreeMeasurement returns h(x) = x, identity observation.
func (s *System) NoiseFreeMeasurement(i int, x []float64) ([]float64, error) {
	return []float64{x[0]}, nil
}

// Measurement returns x plus a draw from the Y-noise slot.
func (s *System) Measurement(i int, x, params []float64) ([]float64, error) {
	bank := s.Bank()
	_, ySlot := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{s.MeasurementNoise})
	n, err := dist.NewNormal(bank, ySlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	return []float64{x[0] + n.Sample()[0]}, nil
}

// MeasurementLogDensity is the isotropic Gaussian log-density of y - yPred.
func (s *System) MeasurementLogDensity(y, yPred []float64, i int, params []float64) (float64, error) {
	cov := mat.NewSymDense(1, []float64{s.MeasurementNoise})
	n, err := dist.NewNormalDensity(yPred, cov)
	if err != nil {
		return 0, err
	}
	return n.LogProb(y), nil
}

// InitialStateSample draws one sample from Normal(InitMean, InitVar).
func (s *System) InitialStateSample() ([]float64, error) {
	xSlot, _ := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{s.InitVar})
	n, err := dist.NewNormal(s.Bank(), xSlot, []float64{s.InitMean}, cov)
	if err != nil {
		return nil, err
	}
	return n.Sample(), nil
}

// SimulateWithInitialState generates a ground-truth trajectory and
// observations from x0 (see system.Simulate).
func (s *System) SimulateWithInitialState(x0, u []float64) error {
	return system.Simulate(s, x0, u)
}
