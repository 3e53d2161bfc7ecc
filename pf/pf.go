// Package pf implements the particle filter's core recursion: particle
// initialization, predict/weight/estimate/resample stepping, and the
// posterior/predictive histogram builders (spec.md §4.2, SPEC_FULL.md
// §6.3). It generalizes particle/bf/bf.go's Predict/Update/Resample shape
// from a single bootstrap-filter scheme to a scheme-selectable recursion
// over the rngbank-disciplined system.System contract.
package pf

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system"
)

// Scheme selects a resampling algorithm.
type Scheme int

const (
	// Multinomial draws N i.i.d. uniforms and finds each one's CDF bucket.
	Multinomial Scheme = iota
	// Systematic draws one uniform offset and takes N evenly spaced samples
	// from it, guaranteeing a copy of every particle with weight >= 1/N.
	Systematic
	// Residual deterministically copies floor(N*w) particles then fills the
	// remainder via a multinomial draw over the residual weights.
	Residual
)

func (s Scheme) String() string {
	switch s {
	case Multinomial:
		return "multinomial"
	case Systematic:
		return "systematic"
	case Residual:
		return "residual"
	default:
		return "unknown"
	}
}

// RNGIDForResampler and RNGIDForBernoulli are the reserved rngbank slots the
// filter draws its resampling and auxiliary Bernoulli streams from,
// distinct from any slot a system registers for its own process or
// measurement noise (spec.md §4.4/§5).
const (
	RNGIDForResampler = 14
	RNGIDForBernoulli = 15
)

// Filter is the Sequential Monte Carlo particle filter driving a
// system.System forward through its recorded observations.
type Filter struct {
	n   int
	sys system.System

	Scheme         Scheme
	WindowSize     int
	IterationLimit int

	particles           []*numat.Matrix // dimX x N, one per time step
	weights             []*numat.Matrix // 1 x N
	particlesPredicted  []*numat.Matrix // dimX x N, pre-resample
	measurementsPredicted []*numat.Matrix // dimY x N
	estimate            *numat.Matrix   // dimX x T
	histogram           []*numat.Matrix // (K-1) x 1, populated on demand

	initialized bool
}

// NewFilter creates a particle filter with n particles over sys using the
// given resampling scheme. It reserves RNGIDForResampler/RNGIDForBernoulli
// on sys's bank so SuggestEmptySlot never hands either out to a system or
// estimator (spec.md §4.4/§5), regardless of which scheme is configured. It
// does not allocate or seed particles; call Initialize to do so.
func NewFilter(n int, sys system.System, scheme Scheme) (*Filter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("particle count must be positive, got %d: %w", n, pferrors.ErrParameterOutOfDomain)
	}
	if sys == nil {
		return nil, fmt.Errorf("system must not be nil: %w", pferrors.ErrParameterOutOfDomain)
	}
	bank := sys.Bank()
	if err := bank.OccupySlot(RNGIDForResampler); err != nil {
		return nil, fmt.Errorf("reserving resampler slot %d: %w", RNGIDForResampler, err)
	}
	if err := bank.OccupySlot(RNGIDForBernoulli); err != nil {
		bank.FreeSlot(RNGIDForResampler)
		return nil, fmt.Errorf("reserving bernoulli slot %d: %w", RNGIDForBernoulli, err)
	}
	return &Filter{n: n, sys: sys, Scheme: scheme}, nil
}

// N returns the particle count.
func (f *Filter) N() int { return f.n }

// System returns the filter's underlying system, letting paramest run its
// own augmented state-parameter recursion against the same model and RNG
// bank the filter uses.
func (f *Filter) System() system.System { return f.sys }

// Resample exposes the configured scheme's resampling algorithm to
// paramest, which runs its own joint state-parameter recursion but reuses
// the same resampling code the filter's own recursion does.
func Resample(scheme Scheme, w *numat.Matrix, bank *rngbank.Bank) ([]int, error) {
	return resample(scheme, w, bank)
}

// SetStepResult overwrites the filter's particle/weight/prediction arrays
// and estimate column at time index i. It exists so that paramest's
// parameter estimators, which run their own augmented state-parameter
// recursion, can still populate the same arrays spec.md's data model
// describes as filter-owned.
func (f *Filter) SetStepResult(i int, particles, particlesPredicted, measurementsPredicted, weights *numat.Matrix) error {
	if err := f.requireInitialized(); err != nil {
		return err
	}
	if i < 1 || i >= len(f.particles) {
		return fmt.Errorf("time index %d out of range: %w", i, pferrors.ErrIndexOutOfRange)
	}
	f.particles[i] = particles
	f.particlesPredicted[i] = particlesPredicted
	f.measurementsPredicted[i] = measurementsPredicted
	f.weights[i] = weights

	dimX, _, _, _, _ := f.sys.Dims()
	for r := 1; r <= dimX; r++ {
		if err := f.estimate.Set(r, i, weightedMeanComponent(particles, weights, r)); err != nil {
			return err
		}
	}
	return nil
}

// Horizon returns T, the number of time steps the filter is sized for.
func (f *Filter) Horizon() int {
	w, _ := f.sys.TimeSpan().Dims()
	return w
}

// Initialize allocates the N x T particle/weight/prediction arrays and
// draws t=1 particles from the system's prior, with uniform weights 1/N.
func (f *Filter) Initialize() error {
	dimX, _, _, _, _ := f.sys.Dims()
	t := f.Horizon()

	particles := make([]*numat.Matrix, t+1)
	weights := make([]*numat.Matrix, t+1)
	particlesPredicted := make([]*numat.Matrix, t+1)
	measurementsPredicted := make([]*numat.Matrix, t+1)

	x0, err := numat.New(numat.F64, f.n, dimX)
	if err != nil {
		return err
	}
	w0, err := numat.New(numat.F64, f.n, 1)
	if err != nil {
		return err
	}
	for k := 1; k <= f.n; k++ {
		sample, err := f.sys.InitialStateSample()
		if err != nil {
			return fmt.Errorf("drawing initial particle %d: %w", k, err)
		}
		for r := 1; r <= dimX; r++ {
			if err := x0.Set(r, k, sample[r-1]); err != nil {
				return err
			}
		}
		if err := w0.Set(1, k, 1/float64(f.n)); err != nil {
			return err
		}
	}
	particles[1] = x0
	weights[1] = w0

	estimate, err := numat.New(numat.F64, t, dimX)
	if err != nil {
		return err
	}
	for r := 1; r <= dimX; r++ {
		if err := estimate.Set(r, 1, weightedMeanComponent(x0, w0, r)); err != nil {
			return err
		}
	}

	f.particles = particles
	f.weights = weights
	f.particlesPredicted = particlesPredicted
	f.measurementsPredicted = measurementsPredicted
	f.estimate = estimate
	f.histogram = make([]*numat.Matrix, t+1)
	f.initialized = true
	return nil
}

// SetTimeSpan replaces the system's time grid and reallocates the filter's
// dependent arrays. On any failure the filter is left uninitialized rather
// than partially resized (spec.md §5).
func (f *Filter) SetTimeSpan(ts *numat.Matrix) error {
	f.initialized = false
	if err := f.sys.SetTimeSpan(ts); err != nil {
		return err
	}
	return f.Initialize()
}

// Particles returns the dimX x N particle matrix at time step i (1-based).
func (f *Filter) Particles(i int) (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.indexed(f.particles, i)
}

// Weights returns the 1 x N weight matrix at time step i (1-based).
func (f *Filter) Weights(i int) (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.indexed(f.weights, i)
}

// ParticlesPredicted returns the pre-resample dimX x N particle matrix at
// time step i.
func (f *Filter) ParticlesPredicted(i int) (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.indexed(f.particlesPredicted, i)
}

// MeasurementsPredicted returns the dimY x N predicted-measurement matrix at
// time step i.
func (f *Filter) MeasurementsPredicted(i int) (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.indexed(f.measurementsPredicted, i)
}

// Estimate returns the dimX x T posterior mean matrix.
func (f *Filter) Estimate() (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.estimate, nil
}

func (f *Filter) indexed(ms []*numat.Matrix, i int) (*numat.Matrix, error) {
	if i < 1 || i >= len(ms) || ms[i] == nil {
		return nil, fmt.Errorf("time index %d not yet populated: %w", i, pferrors.ErrIndexOutOfRange)
	}
	return ms[i], nil
}

func (f *Filter) requireInitialized() error {
	if !f.initialized {
		return fmt.Errorf("filter has not been initialized: %w", pferrors.ErrNotInitialized)
	}
	return nil
}

func weightedMeanComponent(x, w *numat.Matrix, r int) float64 {
	n, _ := x.Dims()
	sum := 0.0
	for k := 1; k <= n; k++ {
		xv, _ := x.At(r, k)
		wv, _ := w.At(1, k)
		sum += wv * xv
	}
	return sum
}

func isFiniteAndSane(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
