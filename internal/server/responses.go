package server

import (
	"fmt"
	"io"
)

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
	501: "Not Implemented",
	505: "Version Not Supported",
}

var cannedBody = map[int]string{
	400: "Bad Request\n",
	403: "Forbidden\n",
	404: "Not Found\n",
	500: "Internal Server Error\n",
	501: "Not Implemented\n",
	505: "Version Not Supported\n",
	200: "OK\n",
	201: "Created\n",
}

// writeCannedResponse writes a fixed status line and human-readable body
// with a correct Content-Length for any status the server produces itself.
// Socket write errors are swallowed: the connection is being closed either
// way and there is no caller left to report to.
func writeCannedResponse(w io.Writer, status int) {
	body := cannedBody[status]
	if body == "" {
		body = fmt.Sprintf("%d\n", status)
	}

	writeStatusLineWithLength(w, status, reason(status), int64(len(body)))
	_, _ = io.WriteString(w, body)
}

// writeStatusLineWithLength writes the status line and headers (but not
// the body) for a response whose body length is already known. Its only
// caller is writeCannedResponse; handler.Get writes its own 200 status line.
func writeStatusLineWithLength(w io.Writer, status int, reasonPhrase string, contentLength int64) {
	_, _ = fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\n\r\n", status, reasonPhrase, contentLength)
}

func reason(status int) string {
	if r, ok := statusText[status]; ok {
		return r
	}

	return "Unknown"
}
