package audit

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Format(t *testing.T) {
	var buf bytes.Buffer

	l := New(&buf)
	l.Record("GET", "/missing", 404, "1")

	assert.Equal(t, "GET,/missing,404,1\n", buf.String())
}

// singleWriteRecorder records each Write call as a separate entry, so the
// test can check that every call delivered one whole line - standing in for
// the atomicity guarantee a real fd gives a single Write under PIPE_BUF.
type singleWriteRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (s *singleWriteRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, string(p))

	return len(p), nil
}

func TestRecord_OneWriteCallPerLine(t *testing.T) {
	rec := &singleWriteRecorder{}
	l := New(rec)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			l.Record("GET", "/x", 200, "r")
		}(i)
	}

	wg.Wait()

	assert.Len(t, rec.lines, 50)

	for _, line := range rec.lines {
		assert.Equal(t, "GET,/x,200,r\n", line)
	}
}
