// Package system defines the GenericSystem contract (spec.md §4.1): the
// state-transition law and observation law of a discrete-time nonlinear
// stochastic dynamical system, plus the shared bookkeeping (time grid,
// trajectory matrices, RNG slot wiring) every concrete system needs.
//
// Per spec.md §9's first design note, concrete systems do not inherit
// behavior from a common base class: System is a capability set each
// concrete type implements directly, and the recursion logic shared by all
// systems (batch simulation, raw-probability wrapping) is free functions
// operating over the interface, not inherited methods. Base only owns
// matrix storage, generalizing sim/discrete_time.go + sim/system.go's
// shared A/B/C/D bookkeeping to the particle filter's X/U/Y/noise
// trajectory matrices.
package system

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
)

// System is the contract every concrete dynamical system implements.
type System interface {
	// Dims returns state, input, output, process-noise and
	// measurement-noise vector lengths.
	Dims() (dimX, dimU, dimY, dimXNoise, dimYNoise int)

	// NextState returns x(t_i) given x(t_{i-1}) and control u, drawing a
	// fresh process-noise sample from the system's registered X-noise
	// slot.
	NextState(i int, x, u []float64) ([]float64, error)

	// NextStateWithParams is the parameter-accepting overload: it lets a
	// filter evaluate the transition under hypothetical parameters
	// without mutating the system's own stored parameters.
	NextStateWithParams(i int, x, u, params []float64) ([]float64, error)

	// NoiseFreeMeasurement returns the deterministic observation h(x, t).
	NoiseFreeMeasurement(i int, x []float64) ([]float64, error)

	// Measurement returns h(x, t) plus a draw from the system's
	// registered Y-noise slot.
	Measurement(i int, x, params []float64) ([]float64, error)

	// MeasurementLogDensity returns the log observation density of y
	// given a predicted (noise-free) measurement yPred. Systems with
	// additive Gaussian measurement noise implement it as the isotropic
	// normal log-density; other systems may define it directly.
	MeasurementLogDensity(y, yPred []float64, i int, params []float64) (float64, error)

	// InitialStateSample draws one sample from the system's prior over
	// the initial state.
	InitialStateSample() ([]float64, error)

	// TimeSpan returns the system's 1xT time grid.
	TimeSpan() *numat.Matrix

	// Parameters returns the system's stored parameter vector (or
	// matrix, if parameters vary in time).
	Parameters() *numat.Matrix

	// RNGSlots returns the slot IDs this system draws process- and
	// measurement-noise from, respectively.
	RNGSlots() (xNoiseSlot, yNoiseSlot int)

	// Bank returns the RNG multiplexer this system and its caller share.
	// The particle filter draws its resampling and auxiliary Bernoulli
	// streams from the same Bank, on the slots reserved by
	// pf.RNGIDForResampler/RNGIDForBernoulli.
	Bank() *rngbank.Bank

	// SetTimeSpan replaces the system's time grid, reallocating its
	// trajectory matrices to the new horizon. Existing trajectory data is
	// discarded; callers must re-simulate.
	SetTimeSpan(ts *numat.Matrix) error

	// X, U, Y, XNoise and YNoise return the system's trajectory
	// matrices, populated by Simulate.
	X() *numat.Matrix
	U() *numat.Matrix
	Y() *numat.Matrix
	XNoise() *numat.Matrix
	YNoise() *numat.Matrix
}

// Base holds the matrix bookkeeping shared by every concrete system: the
// time grid, parameter vector, trajectory matrices and RNG slot
// assignment. Concrete systems embed Base and add only their nonlinear
// recurrence and prior.
type Base struct {
	dimX, dimU, dimY, dimXNoise, dimYNoise int

	timeSpan   *numat.Matrix
	parameters *numat.Matrix

	x, u, y, xNoise, yNoise *numat.Matrix

	bank                   *rngbank.Bank
	xNoiseSlot, yNoiseSlot int
}

// NewBase validates the time grid, reserves xNoiseSlot/yNoiseSlot on bank
// (spec.md §4.4/§5: every stochastic consumer owns distinct slots, so a
// system's own noise streams must not be handed out to anyone else by
// SuggestEmptySlot), and allocates the X/U/Y/XNoise/YNoise trajectory
// matrices for T = width(timeSpan) steps.
func NewBase(dimX, dimU, dimY, dimXNoise, dimYNoise int, timeSpan, parameters *numat.Matrix, bank *rngbank.Bank, xNoiseSlot, yNoiseSlot int) (*Base, error) {
	if err := ValidateTimeGrid(timeSpan); err != nil {
		return nil, err
	}
	t, _ := timeSpan.Dims()

	if dimXNoise > 0 {
		if err := bank.OccupySlot(xNoiseSlot); err != nil {
			return nil, fmt.Errorf("reserving X-noise slot %d: %w", xNoiseSlot, err)
		}
	}
	if dimYNoise > 0 {
		if err := bank.OccupySlot(yNoiseSlot); err != nil {
			if dimXNoise > 0 {
				bank.FreeSlot(xNoiseSlot)
			}
			return nil, fmt.Errorf("reserving Y-noise slot %d: %w", yNoiseSlot, err)
		}
	}

	x, err := numat.New(numat.F64, t, dimX)
	if err != nil {
		return nil, err
	}
	var u, xNoise, yNoise *numat.Matrix
	if dimU > 0 {
		u, err = numat.New(numat.F64, t, dimU)
		if err != nil {
			return nil, err
		}
	}
	y, err := numat.New(numat.F64, t, dimY)
	if err != nil {
		return nil, err
	}
	if dimXNoise > 0 {
		xNoise, err = numat.New(numat.F64, t, dimXNoise)
		if err != nil {
			return nil, err
		}
	}
	if dimYNoise > 0 {
		yNoise, err = numat.New(numat.F64, t, dimYNoise)
		if err != nil {
			return nil, err
		}
	}

	return &Base{
		dimX: dimX, dimU: dimU, dimY: dimY, dimXNoise: dimXNoise, dimYNoise: dimYNoise,
		timeSpan:   timeSpan,
		parameters: parameters,
		x:          x,
		u:          u,
		y:          y,
		xNoise:     xNoise,
		yNoise:     yNoise,
		bank:       bank,
		xNoiseSlot: xNoiseSlot,
		yNoiseSlot: yNoiseSlot,
	}, nil
}

// ValidateTimeGrid checks that ts is a 1xT matrix of strictly increasing
// values with T >= 2, per spec.md §3's TimeGrid invariant.
func ValidateTimeGrid(ts *numat.Matrix) error {
	w, h := ts.Dims()
	if h != 1 {
		return fmt.Errorf("time grid must be a 1xT row vector, got height %d: %w", h, pferrors.ErrShapeMismatch)
	}
	if w < 2 {
		return fmt.Errorf("time grid must have at least 2 entries, got %d: %w", w, pferrors.ErrParameterOutOfDomain)
	}
	prev, err := ts.At(1, 1)
	if err != nil {
		return err
	}
	for c := 2; c <= w; c++ {
		v, err := ts.At(1, c)
		if err != nil {
			return err
		}
		if v <= prev {
			return fmt.Errorf("time grid must be strictly increasing at index %d: %w", c, pferrors.ErrParameterOutOfDomain)
		}
		prev = v
	}
	return nil
}

func (b *Base) Dims() (int, int, int, int, int) { return b.dimX, b.dimU, b.dimY, b.dimXNoise, b.dimYNoise }
func (b *Base) TimeSpan() *numat.Matrix          { return b.timeSpan }
func (b *Base) Parameters() *numat.Matrix        { return b.parameters }
func (b *Base) X() *numat.Matrix                 { return b.x }
func (b *Base) U() *numat.Matrix                 { return b.u }
func (b *Base) Y() *numat.Matrix                 { return b.y }
func (b *Base) XNoise() *numat.Matrix            { return b.xNoise }
func (b *Base) YNoise() *numat.Matrix            { return b.yNoise }
func (b *Base) Bank() *rngbank.Bank              { return b.bank }
func (b *Base) RNGSlots() (int, int)             { return b.xNoiseSlot, b.yNoiseSlot }

// Horizon returns T, the number of columns in the time grid.
func (b *Base) Horizon() int {
	w, _ := b.timeSpan.Dims()
	return w
}

// SetTimeSpan replaces the time grid and reallocates the trajectory
// matrices to the new horizon, discarding any previously simulated
// trajectory. On any allocation failure b is left with its previous grid
// and matrices untouched.
func (b *Base) SetTimeSpan(ts *numat.Matrix) error {
	if err := ValidateTimeGrid(ts); err != nil {
		return err
	}
	t, _ := ts.Dims()

	x, err := numat.New(numat.F64, t, b.dimX)
	if err != nil {
		return err
	}
	var u, xNoise, yNoise *numat.Matrix
	if b.dimU > 0 {
		if u, err = numat.New(numat.F64, t, b.dimU); err != nil {
			return err
		}
	}
	y, err := numat.New(numat.F64, t, b.dimY)
	if err != nil {
		return err
	}
	if b.dimXNoise > 0 {
		if xNoise, err = numat.New(numat.F64, t, b.dimXNoise); err != nil {
			return err
		}
	}
	if b.dimYNoise > 0 {
		if yNoise, err = numat.New(numat.F64, t, b.dimYNoise); err != nil {
			return err
		}
	}

	b.timeSpan = ts
	b.x, b.u, b.y, b.xNoise, b.yNoise = x, u, y, xNoise, yNoise
	return nil
}

// Simulate fills X[:,1] <- x0, then for i = 2..T draws x(t_i) =
// f(x(t_{i-1}), noise) and y(t_i) = h(x(t_i), noise); y(t_1) is produced
// from x(t_1). This is the free function every reference system's
// SimulateWithInitialState method delegates to (spec.md §4.1, last
// bullet).
func Simulate(sys System, x0, u []float64) error {
	dimX, _, _, _, _ := sys.Dims()
	if len(x0) != dimX {
		return fmt.Errorf("initial state has length %d, want %d: %w", len(x0), dimX, pferrors.ErrShapeMismatch)
	}

	if err := setCol(sys.X(), 1, x0); err != nil {
		return err
	}

	y0, err := sys.Measurement(1, x0, nil)
	if err != nil {
		return err
	}
	if err := setCol(sys.Y(), 1, y0); err != nil {
		return err
	}

	w, _ := sys.TimeSpan().Dims()
	x := x0
	for i := 2; i <= w; i++ {
		xNext, err := sys.NextState(i, x, u)
		if err != nil {
			return fmt.Errorf("propagation failed at step %d: %w", i, err)
		}
		if err := setCol(sys.X(), i, xNext); err != nil {
			return err
		}

		yNext, err := sys.Measurement(i, xNext, nil)
		if err != nil {
			return fmt.Errorf("measurement failed at step %d: %w", i, err)
		}
		if err := setCol(sys.Y(), i, yNext); err != nil {
			return err
		}

		x = xNext
	}
	return nil
}

func setCol(m *numat.Matrix, c int, vals []float64) error {
	col, err := numat.NewFromRowMajor(m.Kind(), 1, len(vals), vals)
	if err != nil {
		return err
	}
	return m.SetCol(c, col)
}

// ColValues returns the values of column c of m as a plain slice.
func ColValues(m *numat.Matrix, c int) ([]float64, error) {
	col, err := m.Col(c)
	if err != nil {
		return nil, err
	}
	return col.RawRowMajor(), nil
}

// ImportanceWeightAtTimeIndex returns probabilityOf(measured_y_at_i, ...,
// i, params) evaluated directly from the predicted measurement yPred,
// skipping the system's own re-derivation of yPred from a state vector
// (spec.md §4.1's last bullet). It is the free-function form shared by
// every concrete system.
func ImportanceWeightAtTimeIndex(sys System, i int, yPred []float64) (float64, error) {
	yMeasured, err := ColValues(sys.Y(), i)
	if err != nil {
		return 0, err
	}
	lp, err := sys.MeasurementLogDensity(yMeasured, yPred, i, paramValues(sys))
	if err != nil {
		return 0, err
	}
	return math.Exp(lp), nil
}

// LogLikelihood returns log p(y | x, params, t_i): the system derives
// yPred = h(x) and defers to MeasurementLogDensity for the density itself.
func LogLikelihood(sys System, y, x []float64, i int, params []float64) (float64, error) {
	yPred, err := sys.NoiseFreeMeasurement(i, x)
	if err != nil {
		return 0, err
	}
	return sys.MeasurementLogDensity(y, yPred, i, params)
}

// ProbabilityOf is spec.md's literal `probabilityOf(y, x, i, params) -> f64`
// operation: a thin math.Exp wrapper over the numerically-stable
// LogLikelihood the estimators use internally.
func ProbabilityOf(sys System, y, x []float64, i int, params []float64) (float64, error) {
	lp, err := LogLikelihood(sys, y, x, i, params)
	if err != nil {
		return 0, err
	}
	return math.Exp(lp), nil
}

func paramValues(sys System) []float64 {
	p := sys.Parameters()
	if p == nil {
		return nil
	}
	return p.RawRowMajor()
}
