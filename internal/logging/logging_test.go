package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct{ lines []string }

func (r *recorder) Printf(format string, args ...interface{}) {
	r.lines = append(r.lines, format)
}

func TestWarnfPrefixesMessage(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	SetOutput(rec)
	defer SetOutput(nil)

	Warnf("weights degenerated at step %d", 3)
	assert.Len(rec.lines, 1)
	assert.Contains(rec.lines[0], "warn: weights degenerated")
}

func TestSetOutputIgnoresNil(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	SetOutput(rec)
	SetOutput(nil)
	Warnf("still routed")
	assert.Len(rec.lines, 1)
}
