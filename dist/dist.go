// Package dist implements the standard normal, uniform and binomial
// samplers the particle filter and its reference systems draw from, built
// on top of a rngbank.Bank slot rather than a process-global or
// time-seeded source. Adapted from noise/gaussian.go (distmv.Normal
// construction) and rand/rand.go (distuv-based uniform draws) in the
// teacher repo.
package dist

import (
	"fmt"

	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normal is a multivariate Gaussian sampler bound to one rngbank slot.
type Normal struct {
	dist *distmv.Normal
	mean []float64
	cov  mat.Symmetric
}

// NewNormal creates a Normal distribution with the given mean and
// covariance, drawing from bank slot slot. It returns
// ErrParameterOutOfDomain if the covariance is not positive semi-definite.
func NewNormal(bank *rngbank.Bank, slot int, mean []float64, cov mat.Symmetric) (*Normal, error) {
	src, err := bank.Source(slot)
	if err != nil {
		return nil, err
	}
	d, ok := distmv.NewNormal(mean, cov, src)
	if !ok {
		return nil, fmt.Errorf("covariance is not positive semi-definite: %w", pferrors.ErrParameterOutOfDomain)
	}
	return &Normal{dist: d, mean: mean, cov: cov}, nil
}

// NewNormalDensity creates a Normal distribution usable only for density
// evaluation (LogProb), not sampling: it carries no rngbank slot since
// LogProb never consumes randomness. Used by MeasurementLogDensity
// implementations, which only ever score a residual against a covariance.
func NewNormalDensity(mean []float64, cov mat.Symmetric) (*Normal, error) {
	d, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, fmt.Errorf("covariance is not positive semi-definite: %w", pferrors.ErrParameterOutOfDomain)
	}
	return &Normal{dist: d, mean: mean, cov: cov}, nil
}

// Sample draws one vector from the distribution.
func (n *Normal) Sample() []float64 {
	return n.dist.Rand(nil)
}

// LogProb returns the log-density of the distribution at x.
func (n *Normal) LogProb(x []float64) float64 {
	return n.dist.LogProb(x)
}

// Mean returns the distribution mean.
func (n *Normal) Mean() []float64 {
	mean := make([]float64, len(n.mean))
	copy(mean, n.mean)
	return mean
}

// Cov returns the distribution covariance.
func (n *Normal) Cov() mat.Symmetric { return n.cov }

// Uniform is a uniform [min, max) sampler bound to one rngbank slot.
// Adapted from rand.RouletteDrawN's use of distuv.UnitUniform.
type Uniform struct {
	dist distuv.Uniform
}

// NewUniform creates a Uniform distribution over [min, max) drawing from
// bank slot slot.
func NewUniform(bank *rngbank.Bank, slot int, min, max float64) (*Uniform, error) {
	src, err := bank.Source(slot)
	if err != nil {
		return nil, err
	}
	return &Uniform{dist: distuv.Uniform{Min: min, Max: max, Src: src}}, nil
}

// Sample draws one value from the distribution.
func (u *Uniform) Sample() float64 { return u.dist.Rand() }

// Binomial is a Binomial(n, p) sampler bound to one rngbank slot.
type Binomial struct {
	dist distuv.Binomial
}

// NewBinomial creates a Binomial(n, p) distribution drawing from bank slot
// slot.
func NewBinomial(bank *rngbank.Bank, slot int, n, p float64) (*Binomial, error) {
	src, err := bank.Source(slot)
	if err != nil {
		return nil, err
	}
	return &Binomial{dist: distuv.Binomial{N: n, P: p, Src: src}}, nil
}

// Sample draws one value from the distribution.
func (b *Binomial) Sample() float64 { return b.dist.Rand() }

// Rademacher draws a vector of n independent +-1 components with equal
// probability, used by SPSA's simultaneous perturbation step (spec.md
// §4.3). It consumes one Bernoulli(0.5) draw per component from the given
// slot, mapping outcome 0 to -1.
func Rademacher(bank *rngbank.Bank, slot int, n int) ([]float64, error) {
	src, err := bank.Source(slot)
	if err != nil {
		return nil, err
	}
	coin := distuv.Bernoulli{P: 0.5, Src: src}

	out := make([]float64, n)
	for i := range out {
		if coin.Rand() < 0.5 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out, nil
}
