// Package simple implements the classic univariate nonlinear test system
// used throughout the sequential-Monte-Carlo literature (spec.md §4.1,
// grounded on original_source/SimpleSystem.h's phi1/phi2/phi3/sigma
// fields):
//
//	x(t+1) = phi1*x(t) + phi2*x(t)/(1+x(t)^2) + phi3*cos(1.2*t) + v(t)
//	y(t)   = x(t)^2/20 + w(t)
//
// with Gaussian process noise v and measurement noise w.
package simple

import (
	"math"

	"github.com/milosgajdos/go-smcfilter/dist"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system"
	"gonum.org/v1/gonum/mat"
)

// System is the SimpleSystem reference model.
type System struct {
	*system.Base

	Phi1, Phi2, Phi3 float64
	ProcessVar       float64
	MeasVar          float64
	InitMean         float64
	InitVar          float64
}

// New creates a SimpleSystem over the given time grid.
func New(timeSpan *numat.Matrix, phi1, phi2, phi3, processVar, measVar, initMean, initVar float64, bank *rngbank.Bank, xNoiseSlot, yNoiseSlot int) (*System, error) {
	params, err := numat.NewFromRowMajor(numat.F64, 3, 1, []float64{phi1, phi2, phi3})
	if err != nil {
		return nil, err
	}
	base, err := system.NewBase(1, 0, 1, 1, 1, timeSpan, params, bank, xNoiseSlot, yNoiseSlot)
	if err != nil {
		return nil, err
	}
	return &System{
		Base: base, Phi1: phi1, Phi2: phi2, Phi3: phi3,
		ProcessVar: processVar, MeasVar: measVar,
		InitMean: initMean, InitVar: initVar,
	}, nil
}

func (s *System) timeAt(i int) (float64, error) { return s.TimeSpan().At(1, i) }

// NextState draws x(t_i) = phi1*x + phi2*x/(1+x^2) + phi3*cos(1.2*t_{i-1}) + v,
// with x = x(t_{i-1}) and v from the system's X-noise slot.
func (s *System) NextState(i int, x, u []float64) ([]float64, error) {
	return s.nextState(i, x, u, s.Phi1, s.Phi2, s.Phi3, s.ProcessVar)
}

// NextStateWithParams evaluates the transition under hypothetical
// parameters {phi1, phi2, phi3} without mutating the system's own stored
// parameters.
func (s *System) NextStateWithParams(i int, x, u, params []float64) ([]float64, error) {
	phi1, phi2, phi3 := s.Phi1, s.Phi2, s.Phi3
	if len(params) == 3 {
		phi1, phi2, phi3 = params[0], params[1], params[2]
	}
	return s.nextState(i, x, u, phi1, phi2, phi3, s.ProcessVar)
}

func (s *System) nextState(i int, x, u []float64, phi1, phi2, phi3, processVar float64) ([]float64, error) {
	t, err := s.timeAt(i - 1)
	if err != nil {
		return nil, err
	}
	xv := x[0]
	next := phi1*xv + phi2*xv/(1+xv*xv) + phi3*math.Cos(1.2*t)

	bank := s.Bank()
	xSlot, _ := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{processVar})
	n, err := dist.NewNormal(bank, xSlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	v := n.Sample()[0]
	return []float64{next + v}, nil
}

// NoiseFreeMeasurement returns h(x) = x^2/20.
func (s *System) NoiseFreeMeasurement(i int, x []float64) ([]float64, error) {
	return []float64{x[0] * x[0] / 20.0}, nil
}

// Measurement returns h(x) plus a draw from the Y-noise slot.
func (s *System) Measurement(i int, x, params []float64) ([]float64, error) {
	y, err := s.NoiseFreeMeasurement(i, x)
	if err != nil {
		return nil, err
	}
	bank := s.Bank()
	_, ySlot := s.RNGSlots()
	cov := mat.NewSymDense(1, []float64{s.MeasVar})
	n, err := dist.NewNormal(bank, ySlot, []float64{0}, cov)
	if err != nil {
		return nil, err
	}
	return []float64{y[0] + n.Sample()[0]}, nil
}

// MeasurementLogDensity is the isotropic Gaussian log-density of y - yPred.
func (s *System) MeasurementLogDensity(y, yPred []float64, i int, params []float64) (float64, error) {
	cov := mat.NewSymDense(1, []float64{s.MeasVar})
	n, err := dist.NewNormalDensity(yPred, cov)
	if err != nil {
		return 0, err
	}
	return n.LogProb(y), nil
}

// InitialStateSample draws one sample from Normal(InitMean, InitVar).
func (s *System) InitialStateSample() ([]float64, error) {
	cov := mat.NewSymDense(1, []float64{s.InitVar})
	xSlot, _ := s.RNGSlots()
	n, err := dist.NewNormal(s.Bank(), xSlot, []float64{s.InitMean}, cov)
	if err != nil {
		return nil, err
	}
	return n.Sample(), nil
}

// SimulateWithInitialState generates a ground-truth trajectory and
// observations from x0 and control u (see system.Simulate).
func (s *System) SimulateWithInitialState(x0, u []float64) error {
	return system.Simulate(s, x0, u)
}
