// Package audit writes the completed-request audit trail.
//
// The wire format is mandated byte-for-byte and is not routed through the
// structured logger used for operational diagnostics: audit lines are a
// machine-readable contract, not a human-facing log stream.
package audit

import (
	"fmt"
	"io"
)

// Log writes one line per completed request to an underlying stream.
//
// Record deliberately performs a single unsynchronized Write of the whole
// line: there is no internal lock, and concurrent Record calls from
// different workers rely on the underlying stream's per-call
// write atomicity (true of os.Stderr and pipes for writes under PIPE_BUF)
// rather than on any ordering this package imposes. Ordering between two
// audit lines for requests on the same URI instead falls out of the
// dispatcher holding that URI's lock across the write.
type Log struct {
	w io.Writer
}

// New wraps w as an audit log destination.
func New(w io.Writer) *Log {
	return &Log{w: w}
}

// Record writes "METHOD,/URI,STATUS,REQUEST_ID\n" in one Write call. Write
// errors are swallowed - audit delivery is best-effort against a
// diagnostic stream, matching how canned-response write failures are
// handled.
func (l *Log) Record(method, uri string, status int, requestID string) {
	line := fmt.Sprintf("%s,%s,%d,%s\n", method, uri, status, requestID)
	_, _ = l.w.Write([]byte(line))
}
