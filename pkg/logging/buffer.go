package logging

import (
	"strings"
	"sync/atomic"
)

// LineCapture is an io.Writer that keeps only the last line written.
type LineCapture struct {
	last atomic.Pointer[string]
}

var (
	// GlobalLogCapture holds the last INFO+ server log line.
	GlobalLogCapture = &LineCapture{}
	// GlobalEventCapture holds the last event log line.
	GlobalEventCapture = &LineCapture{}
)

func (c *LineCapture) Write(p []byte) (int, error) {
	s := strings.TrimRight(string(p), "\r\n")
	c.last.Store(&s)
	return len(p), nil
}

// Last returns the most recent line, or "".
func (c *LineCapture) Last() string {
	if s := c.last.Load(); s != nil {
		return *s
	}
	return ""
}
