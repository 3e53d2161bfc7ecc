// Package config is the driver-facing configuration surface spec.md §6
// names: a plain struct the caller populates by hand, the same way the
// teacher's examples/*/main.go construct models and filters directly in
// main rather than through a config-file/env parsing layer.
package config

import (
	"fmt"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pf"
)

// SPSAConfig mirrors paramest.SPSAConfig's gain-sequence constants,
// duplicated here (rather than imported) so config has no dependency on
// paramest — the driver assembles paramest.SPSAConfig from this at call
// time.
type SPSAConfig struct {
	Alpha, Gamma   float64
	A0, C0, ABig   float64
	IterationLimit int
}

// TimeGrid is the [t0, t1, dt] triple a driver uses to build a system's
// 1xT time-span matrix.
type TimeGrid struct {
	T0, T1, Dt float64
}

// Config collects every driver-facing knob spec.md §6 names: particle
// count, time grid, histogram domain, resampling scheme, SPSA gain
// sequence, and the per-system parameters/initial-state mean/noise
// variances a concrete system.System constructor takes.
type Config struct {
	Particles       int
	TimeGrid        TimeGrid
	HistogramDomain *numat.Matrix
	Scheme          pf.Scheme
	SPSA            SPSAConfig

	SystemParams     []float64
	InitialStateMean []float64
	NoiseVariances   []float64
}

// Default returns the configuration spec.md §6 lists as defaults: 200
// particles, a [0, 120, 1] time grid, and 400 equispaced histogram bins on
// [-10, 10].
func Default() (*Config, error) {
	domain, err := equispacedEdges(-10, 10, 400)
	if err != nil {
		return nil, err
	}
	return &Config{
		Particles:       200,
		TimeGrid:        TimeGrid{T0: 0, T1: 120, Dt: 1},
		HistogramDomain: domain,
		Scheme:          pf.Systematic,
		SPSA: SPSAConfig{
			Alpha: 0.602, Gamma: 0.101,
			A0: 1, C0: 1, ABig: 10,
			IterationLimit: 50,
		},
	}, nil
}

// Grid expands TimeGrid into a row-vector numat.Matrix suitable for
// system.NewBase/system.System.SetTimeSpan.
func (c *Config) Grid() (*numat.Matrix, error) {
	if c.TimeGrid.Dt <= 0 {
		return nil, fmt.Errorf("time grid step must be positive, got %v", c.TimeGrid.Dt)
	}
	var ts []float64
	for t := c.TimeGrid.T0; t <= c.TimeGrid.T1+1e-9; t += c.TimeGrid.Dt {
		ts = append(ts, t)
	}
	return numat.NewFromRowMajor(numat.F64, len(ts), 1, ts)
}

func equispacedEdges(lo, hi float64, bins int) (*numat.Matrix, error) {
	edges := make([]float64, bins+1)
	step := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	return numat.NewFromRowMajor(numat.F64, len(edges), 1, edges)
}
