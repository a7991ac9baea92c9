package request

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conn is an io.ReadWriter over a fixed byte slice, standing in for a
// socket in tests that don't need an actual listener.
type conn struct {
	*strings.Reader
	bytes.Buffer
}

func newConn(s string) *conn {
	return &conn{Reader: strings.NewReader(s)}
}

func (c *conn) Read(p []byte) (int, error) {
	return c.Reader.Read(p)
}

func TestParse_GetNoBody(t *testing.T) {
	c := newConn("GET /missing HTTP/1.1\r\nRequest-Id: 1\r\n\r\n")

	req, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/missing", req.URI)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Equal(t, "1", req.Headers["Request-Id"])
	assert.Empty(t, req.BodyPrefix)
}

func TestParse_PutWithBufferedBody(t *testing.T) {
	c := newConn("PUT /a HTTP/1.1\r\nRequest-Id: 2\r\nContent-Length: 5\r\n\r\nhello")

	req, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "5", req.Headers["Content-Length"])
	assert.Equal(t, []byte("hello"), req.BodyPrefix)
}

func TestParse_MethodCaseInsensitive(t *testing.T) {
	c := newConn("get /a HTTP/1.1\r\nRequest-Id: 1\r\n\r\n")

	req, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
}

func TestParse_MissingRequestID(t *testing.T) {
	c := newConn("GET /a HTTP/1.1\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParse_UnsupportedMethod(t *testing.T) {
	c := newConn("POST /x HTTP/1.1\r\nRequest-Id: 4\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestParse_UnsupportedVersion(t *testing.T) {
	c := newConn("GET /a HTTP/0.9\r\nRequest-Id: 5\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParse_BadRequestLine(t *testing.T) {
	c := newConn("GET\r\nRequest-Id: 1\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParse_BadHeaderLine(t *testing.T) {
	c := newConn("GET /a HTTP/1.1\r\nRequest-Id 1\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParse_OversizeHead(t *testing.T) {
	var b strings.Builder

	b.WriteString("GET /a HTTP/1.1\r\n")
	b.WriteString("Request-Id: 1\r\n")

	for b.Len() < 3000 {
		b.WriteString("X-Pad: " + strings.Repeat("a", 100) + "\r\n")
	}

	b.WriteString("\r\n")

	c := newConn(b.String())

	_, err := Parse(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParse_URITooLong(t *testing.T) {
	c := newConn("GET /" + strings.Repeat("a", 64) + " HTTP/1.1\r\nRequest-Id: 1\r\n\r\n")

	_, err := Parse(c)
	require.ErrorIs(t, err, ErrMalformed)
}
