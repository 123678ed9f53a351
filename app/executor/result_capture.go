package executor

import (
	"time"

	"sandbox-svc/app/domains"
)

// DefaultMaxStreamBytes caps each captured stream at 1 MiB.
const DefaultMaxStreamBytes = 1 << 20

// ResultCapture assembles raw container output into an ExecutionResult,
// truncating each stream independently at maxBytes.
type ResultCapture struct {
	maxBytes int
}

// NewResultCapture returns a capture with the given per-stream byte
// cap. Non-positive values fall back to DefaultMaxStreamBytes.
func NewResultCapture(maxBytes int) *ResultCapture {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStreamBytes
	}
	return &ResultCapture{maxBytes: maxBytes}
}

// Assemble builds the result record for one finished (or killed) run.
// A timed-out run never carries an exit code: whatever the runtime
// reported after the kill is the signal's, not the command's.
func (c *ResultCapture) Assemble(stdout, stderr []byte, exitCode *int, timedOut bool, elapsed time.Duration) domains.ExecutionResult {
	res := domains.ExecutionResult{
		TimedOut:   timedOut,
		DurationMs: elapsed.Milliseconds(),
	}
	res.Stdout, res.StdoutTruncated = c.clip(stdout)
	res.Stderr, res.StderrTruncated = c.clip(stderr)
	if !timedOut && exitCode != nil {
		code := *exitCode
		res.ExitCode = &code
	}
	return res
}

func (c *ResultCapture) clip(b []byte) (string, bool) {
	if len(b) <= c.maxBytes {
		return string(b), false
	}
	return string(b[:c.maxBytes]), true
}
