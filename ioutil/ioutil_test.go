package ioutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/stretchr/testify/assert"
)

func readFloatRows(t *testing.T, path string) [][]float64 {
	t.Helper()
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			assert.NoError(t, err)
			row[i] = v
		}
		rows = append(rows, row)
	}
	assert.NoError(t, scanner.Err())
	return rows
}

func TestWriteEstimateToFileRoundTrips(t *testing.T) {
	assert := assert.New(t)

	m, err := numat.NewFromRowMajor(numat.F64, 3, 2, []float64{1, 2, 3, 4, 5, 6})
	assert.NoError(err)

	path := filepath.Join(t.TempDir(), "estimate.txt")
	assert.NoError(WriteEstimateToFile(path, m))

	rows := readFloatRows(t, path)
	assert.Equal([][]float64{{1, 2, 3}, {4, 5, 6}}, rows)
}

func TestWriteEstimationErrorToFileSubtracts(t *testing.T) {
	assert := assert.New(t)

	est, err := numat.NewFromRowMajor(numat.F64, 2, 1, []float64{5, 7})
	assert.NoError(err)
	state, err := numat.NewFromRowMajor(numat.F64, 2, 1, []float64{1, 2})
	assert.NoError(err)

	path := filepath.Join(t.TempDir(), "err.txt")
	assert.NoError(WriteEstimationErrorToFile(path, est, state))

	rows := readFloatRows(t, path)
	assert.Equal([][]float64{{4, 5}}, rows)
}

func TestWriteEstimationErrorToFileShapeMismatch(t *testing.T) {
	assert := assert.New(t)

	est, err := numat.New(numat.F64, 2, 1)
	assert.NoError(err)
	state, err := numat.New(numat.F64, 3, 1)
	assert.NoError(err)

	path := filepath.Join(t.TempDir(), "err.txt")
	assert.Error(WriteEstimationErrorToFile(path, est, state))
}

func TestWriteParticlesToFileWritesPerStepBlocks(t *testing.T) {
	assert := assert.New(t)

	p1, err := numat.NewFromRowMajor(numat.F64, 2, 1, []float64{0.1, 0.2})
	assert.NoError(err)
	p2, err := numat.NewFromRowMajor(numat.F64, 2, 1, []float64{0.3, 0.4})
	assert.NoError(err)

	path := filepath.Join(t.TempDir(), "particles.txt")
	assert.NoError(WriteParticlesToFile(path, []*numat.Matrix{nil, p1, p2}))

	raw, err := os.ReadFile(path)
	assert.NoError(err)
	text := string(raw)
	assert.Contains(text, "# t=1")
	assert.Contains(text, "# t=2")
}

func TestWriteHistogramForGnuplotToFileColumnCount(t *testing.T) {
	assert := assert.New(t)

	hist, err := numat.NewFromRowMajor(numat.F64, 3, 1, []float64{1, 2, 3})
	assert.NoError(err)
	edges := []float64{0, 1, 2, 3}

	path := filepath.Join(t.TempDir(), "hist.dat")
	assert.NoError(WriteHistogramForGnuplotToFile(path, hist, edges))

	rows := readFloatRows(t, path)
	assert.Len(rows, 3)
	for _, r := range rows {
		assert.Len(r, 3)
	}
}

func TestWriteHistogramForGnuplotToFileEdgeCountMismatch(t *testing.T) {
	assert := assert.New(t)

	hist, err := numat.NewFromRowMajor(numat.F64, 3, 1, []float64{1, 2, 3})
	assert.NoError(err)

	path := filepath.Join(t.TempDir(), "hist.dat")
	assert.Error(WriteHistogramForGnuplotToFile(path, hist, []float64{0, 1}))
}
