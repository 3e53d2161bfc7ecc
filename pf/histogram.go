package pf

import (
	"fmt"
	"sort"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
)

// Histogram returns the bin-count matrix for time step i, populated by a
// prior call to MakePosteriorDistributionHistogramForStateComponent or
// MakePredictiveDistributionHistogramForMeasurementComponent.
func (f *Filter) Histogram(i int) (*numat.Matrix, error) {
	if err := f.requireInitialized(); err != nil {
		return nil, err
	}
	return f.indexed(f.histogram, i)
}

// domainEdges flattens a 1xK or Kx1 domain matrix into a strictly
// increasing slice of K edges.
func domainEdges(domain *numat.Matrix) ([]float64, error) {
	w, h := domain.Dims()
	if w != 1 && h != 1 {
		return nil, fmt.Errorf("domain must be a vector, got [%d x %d]: %w", w, h, pferrors.ErrShapeMismatch)
	}
	edges := domain.RawRowMajor()
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("domain edges must be strictly increasing at index %d: %w", i, pferrors.ErrParameterOutOfDomain)
		}
	}
	return edges, nil
}

// bin returns the 0-based bin index of v within the half-open intervals
// [edges[j], edges[j+1]), or -1 if v < edges[0] or v >= edges[len-1]
// (spec.md §4.2/§9(c): samples at or past the last edge are dropped, not
// clipped into the last bin).
func bin(edges []float64, v float64) int {
	if v < edges[0] || v >= edges[len(edges)-1] {
		return -1
	}
	// sort.Search finds the smallest i such that edges[i] > v; the bin
	// containing v is the one just before it.
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > v })
	return i - 1
}

// MakePosteriorDistributionHistogramForStateComponent bins the c-th state
// component (1-based) of every particle at every time step into the K-1
// half-open intervals defined by domain's K edges, populating
// f.Histogram(i) for i = 1..T.
func (f *Filter) MakePosteriorDistributionHistogramForStateComponent(c int, domain *numat.Matrix) error {
	if err := f.requireInitialized(); err != nil {
		return err
	}
	edges, err := domainEdges(domain)
	if err != nil {
		return err
	}
	for i := 1; i < len(f.particles); i++ {
		p := f.particles[i]
		if p == nil {
			continue
		}
		hist, err := histogramOfComponent(p, c, edges)
		if err != nil {
			return fmt.Errorf("histogram at step %d: %w", i, err)
		}
		f.histogram[i] = hist
	}
	return nil
}

// MakePredictiveDistributionHistogramForMeasurementComponent is the
// measurement-predictive analogue, binning measurementsPredicted's c-th
// output component.
func (f *Filter) MakePredictiveDistributionHistogramForMeasurementComponent(c int, domain *numat.Matrix) error {
	if err := f.requireInitialized(); err != nil {
		return err
	}
	edges, err := domainEdges(domain)
	if err != nil {
		return err
	}
	for i := 1; i < len(f.measurementsPredicted); i++ {
		p := f.measurementsPredicted[i]
		if p == nil {
			continue
		}
		hist, err := histogramOfComponent(p, c, edges)
		if err != nil {
			return fmt.Errorf("histogram at step %d: %w", i, err)
		}
		f.histogram[i] = hist
	}
	return nil
}

func histogramOfComponent(particles *numat.Matrix, c int, edges []float64) (*numat.Matrix, error) {
	n, _ := particles.Dims()
	counts := make([]float64, len(edges)-1)
	for k := 1; k <= n; k++ {
		v, err := particles.At(c, k)
		if err != nil {
			return nil, err
		}
		b := bin(edges, v)
		if b >= 0 {
			counts[b]++
		}
	}
	return numat.NewFromRowMajor(numat.F64, len(counts), 1, counts)
}
