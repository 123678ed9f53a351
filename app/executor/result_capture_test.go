package executor

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAssembleSuccess(t *testing.T) {
	c := NewResultCapture(0)
	res := c.Assemble([]byte("out"), []byte("err"), intPtr(0), false, 1500*time.Millisecond)

	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.False(t, res.TimedOut)
	assert.False(t, res.StdoutTruncated)
	assert.False(t, res.StderrTruncated)
	assert.Equal(t, int64(1500), res.DurationMs)
}

func TestAssembleTimeoutDropsExitCode(t *testing.T) {
	c := NewResultCapture(0)
	res := c.Assemble([]byte("partial"), nil, intPtr(137), true, 60*time.Second)

	assert.Nil(t, res.ExitCode)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "partial", res.Stdout)
}

func TestAssembleTruncatesPerStream(t *testing.T) {
	c := NewResultCapture(8)
	big := bytes.Repeat([]byte("x"), 20)
	res := c.Assemble(big, []byte("small"), intPtr(1), false, time.Second)

	assert.Equal(t, "xxxxxxxx", res.Stdout)
	assert.True(t, res.StdoutTruncated)
	assert.Equal(t, "small", res.Stderr)
	assert.False(t, res.StderrTruncated)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 1, *res.ExitCode)
}

func TestAssembleCopiesExitCode(t *testing.T) {
	c := NewResultCapture(0)
	code := 7
	res := c.Assemble(nil, nil, &code, false, 0)
	code = 99

	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 7, *res.ExitCode)
}
