package config

import (
	"testing"

	"github.com/milosgajdos/go-smcfilter/pf"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Default()
	assert.NoError(err)
	assert.Equal(200, cfg.Particles)
	assert.Equal(pf.Systematic, cfg.Scheme)

	w, h := cfg.HistogramDomain.Dims()
	assert.Equal(401, w)
	assert.Equal(1, h)
}

func TestGridExpandsTimeSpan(t *testing.T) {
	assert := assert.New(t)

	cfg := &Config{TimeGrid: TimeGrid{T0: 0, T1: 5, Dt: 1}}
	grid, err := cfg.Grid()
	assert.NoError(err)

	w, h := grid.Dims()
	assert.Equal(6, w)
	assert.Equal(1, h)

	first, err := grid.At(1, 1)
	assert.NoError(err)
	assert.Equal(0.0, first)

	last, err := grid.At(1, w)
	assert.NoError(err)
	assert.Equal(5.0, last)
}

func TestGridRejectsNonPositiveStep(t *testing.T) {
	assert := assert.New(t)

	cfg := &Config{TimeGrid: TimeGrid{T0: 0, T1: 5, Dt: 0}}
	_, err := cfg.Grid()
	assert.Error(err)
}
