package paramest

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/dist"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pf"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"github.com/milosgajdos/go-smcfilter/system"
)

// SPSAConfig holds the gain-sequence constants of Simultaneous
// Perturbation Stochastic Approximation (spec.md §4.3): a_n = A0/(n+ABig)^Alpha,
// c_n = C0/n^Gamma.
type SPSAConfig struct {
	Alpha, Gamma   float64
	A0, C0, ABig   float64
	IterationLimit int
	Tolerance      float64

	// InitialParams overrides the system's own Parameters() as SPSA's
	// starting guess, letting a caller start the search away from the
	// system's configured truth (spec.md §4.3 concrete scenario 5: SPSA
	// initialized at theta=5.0 against a system simulated at truth=1.0).
	InitialParams []float64
}

// SPSA estimates f's system parameters by stochastic approximation. At each
// outer iteration it perturbs the current parameter vector by +-c_n*Delta
// (Delta a Rademacher vector), scores both perturbations by running a
// bootstrap particle filter recursion to completion with the parameters
// held fixed, and takes a gradient step along the resulting finite
// difference. A perturbation whose recursion degenerates (weights collapse
// to zero) scores as +Inf loss so the gradient estimate pushes away from it
// rather than aborting the search (SPEC_FULL.md §9). The Rademacher signs
// are drawn from the filter's reserved RNGIDForBernoulli slot. SPSA never
// mutates f itself; it returns the P x (IterationLimit+1) path of parameter
// iterates, column 1 holding the starting parameters.
func SPSA(f *pf.Filter, cfg SPSAConfig) (*numat.Matrix, error) {
	sys := f.System()
	bank := sys.Bank()

	theta := initialParams(sys)
	if len(cfg.InitialParams) > 0 {
		theta = append([]float64(nil), cfg.InitialParams...)
	}
	p := len(theta)
	if p == 0 {
		return nil, fmt.Errorf("system has no estimable parameters: %w", pferrors.ErrParameterOutOfDomain)
	}
	if cfg.IterationLimit <= 0 {
		cfg.IterationLimit = 1
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-8
	}

	path, err := numat.New(numat.F64, cfg.IterationLimit+1, p)
	if err != nil {
		return nil, err
	}
	for j := 1; j <= p; j++ {
		if err := path.Set(j, 1, theta[j-1]); err != nil {
			return nil, err
		}
	}

	crnSlots := commonRandomNumberSlots(sys)

	for iter := 1; iter <= cfg.IterationLimit; iter++ {
		an := cfg.A0 / math.Pow(float64(iter)+cfg.ABig, cfg.Alpha)
		cn := cfg.C0 / math.Pow(float64(iter), cfg.Gamma)

		delta, err := dist.Rademacher(bank, pf.RNGIDForBernoulli, p)
		if err != nil {
			return nil, err
		}

		thetaPlus := make([]float64, p)
		thetaMinus := make([]float64, p)
		for j := range theta {
			thetaPlus[j] = theta[j] + cn*delta[j]
			thetaMinus[j] = theta[j] - cn*delta[j]
		}

		// Reseed the slots spsaLoss's recursion consumes to the same
		// per-iteration state before each of the +/- evaluations, so both
		// see identical noise and resampling draws and the finite
		// difference isolates the effect of the parameter perturbation
		// rather than conflating it with differing randomness.
		if err := reseedAll(bank, crnSlots, uint64(iter)); err != nil {
			return nil, err
		}
		lossPlus, err := spsaLoss(f, thetaPlus)
		if err != nil {
			return nil, err
		}
		if err := reseedAll(bank, crnSlots, uint64(iter)); err != nil {
			return nil, err
		}
		lossMinus, err := spsaLoss(f, thetaMinus)
		if err != nil {
			return nil, err
		}

		grad := make([]float64, p)
		stepNorm := 0.0
		for j := range theta {
			grad[j] = (lossPlus - lossMinus) / (2 * cn * delta[j])
			step := an * grad[j]
			theta[j] -= step
			stepNorm += step * step
		}

		for j := 1; j <= p; j++ {
			if err := path.Set(j, iter+1, theta[j-1]); err != nil {
				return nil, err
			}
		}

		if math.Sqrt(stepNorm) < cfg.Tolerance {
			return path, nil
		}
	}

	return path, nil
}

// spsaLoss runs a bootstrap particle filter recursion against f's system
// with params held fixed throughout, returning the negative sum of the
// per-step log total-weight: the standard SMC marginal log-likelihood
// estimator, negated so SPSA descends it. A step whose weights collapse to
// zero/non-finite scores the whole run as +Inf rather than returning an
// error, so the caller's finite-difference gradient remains well-defined.
func spsaLoss(f *pf.Filter, params []float64) (float64, error) {
	sys := f.System()
	n := f.N()
	t := f.Horizon()
	dimX, _, _, _, _ := sys.Dims()
	bank := sys.Bank()

	x, err := numat.New(numat.F64, n, dimX)
	if err != nil {
		return 0, err
	}
	w, err := numat.New(numat.F64, n, 1)
	if err != nil {
		return 0, err
	}
	for k := 1; k <= n; k++ {
		x0, err := sys.InitialStateSample()
		if err != nil {
			return 0, err
		}
		for r := 1; r <= dimX; r++ {
			if err := x.Set(r, k, x0[r-1]); err != nil {
				return 0, err
			}
		}
		if err := w.Set(1, k, 1/float64(n)); err != nil {
			return 0, err
		}
	}

	negLogLik := 0.0
	for i := 2; i <= t; i++ {
		yMeasured, err := system.ColValues(sys.Y(), i)
		if err != nil {
			return 0, err
		}

		xPred, err := numat.New(numat.F64, n, dimX)
		if err != nil {
			return 0, err
		}
		wPred, err := numat.New(numat.F64, n, 1)
		if err != nil {
			return 0, err
		}

		total := 0.0
		for k := 1; k <= n; k++ {
			xk, err := columnValues(x, k)
			if err != nil {
				return 0, err
			}
			xNext, err := sys.NextStateWithParams(i, xk, nil, params)
			if err != nil {
				return 0, err
			}
			yHat, err := sys.NoiseFreeMeasurement(i, xNext)
			if err != nil {
				return 0, err
			}
			lp, err := sys.MeasurementLogDensity(yMeasured, yHat, i, params)
			if err != nil {
				return 0, err
			}
			wv, err := w.At(1, k)
			if err != nil {
				return 0, err
			}
			wk := wv * math.Exp(lp)
			if math.IsNaN(wk) || math.IsInf(wk, 0) || wk < 0 {
				wk = 0
			}

			for r := 1; r <= dimX; r++ {
				if err := xPred.Set(r, k, xNext[r-1]); err != nil {
					return 0, err
				}
			}
			if err := wPred.Set(1, k, wk); err != nil {
				return 0, err
			}
			total += wk
		}

		if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
			return math.Inf(1), nil
		}
		negLogLik -= math.Log(total)
		wPred.ScaleInPlace(1 / total)

		indices, err := pf.Resample(f.Scheme, wPred, bank)
		if err != nil {
			return 0, err
		}
		xResampled, err := numat.New(numat.F64, n, dimX)
		if err != nil {
			return 0, err
		}
		for k, a := range indices {
			col, err := xPred.Col(a)
			if err != nil {
				return 0, err
			}
			if err := xResampled.SetCol(k+1, col); err != nil {
				return 0, err
			}
			if err := w.Set(1, k+1, 1/float64(n)); err != nil {
				return 0, err
			}
		}
		x = xResampled
	}

	return negLogLik, nil
}

// commonRandomNumberSlots returns the RNG slots spsaLoss's bootstrap
// recursion draws from: sys's own X-noise slot (InitialStateSample,
// NextStateWithParams) and the filter's two reserved resampling slots.
func commonRandomNumberSlots(sys system.System) []int {
	xSlot, _ := sys.RNGSlots()
	return []int{xSlot, pf.RNGIDForResampler, pf.RNGIDForBernoulli}
}

// reseedAll reseeds every slot in slots to bank's own deterministic
// per-slot seed salted by n, so a caller can replay the exact same
// draws across two evaluations by passing the same n to both.
func reseedAll(bank *rngbank.Bank, slots []int, n uint64) error {
	for _, slot := range slots {
		if err := bank.Reseed(slot, bank.SeedForSlot(slot, n)); err != nil {
			return err
		}
	}
	return nil
}

