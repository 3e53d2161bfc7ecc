// Package ioutil implements the plain-text file writers spec.md §6 and
// original_source/GenericParticleFilter.h's write*ToFile method list
// describe: one bufio.Writer loop per matrix or matrix slice, no binary
// framing, no locale-dependent formatting. Grounded on MathMatrix.h's
// writeMatrixToFile/writeRow/writeColumn, adapted to numat.Matrix's 1-based
// width/height convention.
package ioutil

import (
	"bufio"
	"fmt"
	"os"

	"github.com/milosgajdos/go-smcfilter/numat"
)

// writeMatrix writes m row by row, each row's values space-separated and
// formatted with %.17g (doubles) or %d (integral Kinds), one row per line.
func writeMatrix(w *bufio.Writer, m *numat.Matrix) error {
	width, height := m.Dims()
	format := "%.17g"
	if isIntegral(m.Kind()) {
		format = "%d"
	}
	for r := 1; r <= height; r++ {
		for c := 1; c <= width; c++ {
			v, err := m.At(r, c)
			if err != nil {
				return err
			}
			sep := " "
			if c == width {
				sep = "\n"
			}
			if isIntegral(m.Kind()) {
				if _, err := fmt.Fprintf(w, format+sep, int64(v)); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprintf(w, format+sep, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isIntegral(k numat.Kind) bool {
	switch k {
	case numat.I8, numat.U8, numat.I32, numat.U32:
		return true
	default:
		return false
	}
}

func writeToFile(path string, m *numat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeMatrix(w, m); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return w.Flush()
}

func writeSeriesToFile(path string, ms []*numat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, m := range ms {
		if m == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "# t=%d\n", i); err != nil {
			return err
		}
		if err := writeMatrix(w, m); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return w.Flush()
}

// WriteParticlesToFile writes the per-step particle matrices, one block per
// time index, each row a state component and each column a particle.
func WriteParticlesToFile(path string, particles []*numat.Matrix) error {
	return writeSeriesToFile(path, particles)
}

// WriteWeightsToFile writes the per-step 1xN weight matrices.
func WriteWeightsToFile(path string, weights []*numat.Matrix) error {
	return writeSeriesToFile(path, weights)
}

// WriteHistogramToFile writes a single bin-count histogram matrix.
func WriteHistogramToFile(path string, histogram *numat.Matrix) error {
	return writeToFile(path, histogram)
}

// WriteHistogramForGnuplotToFile writes edges[j], edges[j+1) midpoint, and
// bin count as three whitespace-separated columns per line, the layout
// gnuplot's plot "file" using 1:3 with boxes expects.
func WriteHistogramForGnuplotToFile(path string, histogram *numat.Matrix, edges []float64) error {
	counts := histogram.RawRowMajor()
	if len(edges) != len(counts)+1 {
		return fmt.Errorf("histogram has %d bins but %d edges given, want %d", len(counts), len(edges), len(counts)+1)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for j, count := range counts {
		mid := (edges[j] + edges[j+1]) / 2
		if _, err := fmt.Fprintf(bw, "%.17g %.17g %d\n", edges[j], mid, int64(count)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteEstimateToFile writes the dimX x T posterior-mean matrix.
func WriteEstimateToFile(path string, estimate *numat.Matrix) error {
	return writeToFile(path, estimate)
}

// WriteStateToFile writes a system's simulated state trajectory (its X
// matrix).
func WriteStateToFile(path string, state *numat.Matrix) error {
	return writeToFile(path, state)
}

// WriteEstimationErrorToFile writes (estimate - state) row by row: the
// estimation-error trajectory, one state component per row and one time
// step per column. It returns ErrShapeMismatch (via AddInPlace/SubInPlace's
// own check, surfaced through Clone+SubInPlace here) if the two matrices'
// dimensions differ.
func WriteEstimationErrorToFile(path string, estimate, state *numat.Matrix) error {
	errMat := estimate.Clone()
	if err := errMat.SubInPlace(state); err != nil {
		return err
	}
	return writeToFile(path, errMat)
}
