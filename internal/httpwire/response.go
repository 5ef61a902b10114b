package httpwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	301: "Moved Permanently",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Content Too Large",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// StatusText returns the reason phrase for code.
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Status " + strconv.Itoa(code)
}

// Response is an HTTP response held entirely in memory.
type Response struct {
	Version string
	Status  int
	Header  Header
	Body    []byte
}

// NewResponse builds a response whose Content-Length matches body.
func NewResponse(status int, contentType string, body []byte) *Response {
	r := &Response{
		Version: "HTTP/1.1",
		Status:  status,
		Header:  make(Header),
		Body:    body,
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return r
}

// TextResponse is a plain-text response.
func TextResponse(status int, text string) *Response {
	return NewResponse(status, "text/plain; charset=utf-8", []byte(text))
}

// NotFound names the path that failed to resolve.
func NotFound(path string) *Response {
	return TextResponse(404, "File not found: "+path)
}

// BadRequest carries a short, client-safe reason.
func BadRequest(reason string) *Response {
	return TextResponse(400, "Bad Request: "+reason)
}

// ServerError never includes the underlying cause.
func ServerError() *Response {
	return TextResponse(500, StatusText(500))
}

// NotImplemented is sent for methods the server does not know.
func NotImplemented() *Response {
	return NewResponse(501, "", nil)
}

// MethodNotAllowed is sent for known methods the resource does not support.
func MethodNotAllowed(allow string) *Response {
	r := NewResponse(405, "", nil)
	r.Header.Set("Allow", allow)
	return r
}

// StripBody drops the body but keeps the Content-Length computed from it,
// which is what a HEAD response must carry.
func (r *Response) StripBody() {
	if _, ok := r.Header.Lookup("Content-Length"); !ok {
		r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	r.Body = nil
}

// Encode returns the wire form: status line, headers in name order, blank
// line, body.
func (r *Response) Encode() []byte {
	var buf bytes.Buffer
	version := r.Version
	if version == "" {
		version = "HTTP/1.1"
	}
	fmt.Fprintf(&buf, "%s %d %s\r\n", version, r.Status, StatusText(r.Status))
	writeHeader(&buf, r.Header)
	buf.Write(r.Body)
	return buf.Bytes()
}

// WriteTo writes the encoded response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Encode())
	return int64(n), err
}

// ReadResponse parses a response produced by Encode (or any HTTP/1.x server
// that frames with Content-Length). Without Content-Length the body runs to
// EOF.
func ReadResponse(br *bufio.Reader) (*Response, error) {
	res, err := ReadResponseHead(br)
	if err != nil {
		return nil, err
	}
	n, present, err := contentLength(res.Header)
	if err != nil {
		return nil, err
	}
	if !present {
		body, err := io.ReadAll(br)
		if err != nil {
			return nil, ioFailure("read body", err)
		}
		res.Body = body
		return res, nil
	}
	res.Body = make([]byte, n)
	if _, err := io.ReadFull(br, res.Body); err != nil {
		return nil, ioFailure("read body", err)
	}
	return res, nil
}

// ReadResponseHead reads the status line and headers only. It is what a
// client uses for a HEAD request, whose Content-Length describes a body that
// is never sent.
func ReadResponseHead(br *bufio.Reader) (*Response, error) {
	line, err := readLine(br, MaxHeadBytes)
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, ioFailure("read status line", err)
	}
	res := &Response{Header: make(Header)}
	if err := parseStatusLine(strings.TrimRight(string(line), "\r\n"), res); err != nil {
		return nil, err
	}

	read := len(line)
	for count := 0; ; count++ {
		line, err := readLine(br, MaxHeadBytes-read)
		if err != nil {
			if KindOf(err) != 0 {
				return nil, err
			}
			return nil, ioFailure("read response headers", unexpectedEOF(err, read))
		}
		read += len(line)
		text := strings.TrimRight(string(line), "\r\n")
		if text == "" {
			break
		}
		if count >= MaxHeaders {
			return nil, overflow(fmt.Sprintf("more than %d header lines", MaxHeaders))
		}
		name, value, err := parseHeaderLine(text)
		if err != nil {
			return nil, err
		}
		res.Header.Add(name, value)
	}
	return res, nil
}

func parseStatusLine(line string, res *Response) error {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return malformed("invalid status line")
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil || status < 100 || status > 599 {
		return malformed("invalid status code " + fields[1])
	}
	res.Version = fields[0]
	res.Status = status
	return nil
}

func writeHeader(buf *bytes.Buffer, h Header) {
	for _, name := range h.Names() {
		fmt.Fprintf(buf, "%s: %s\r\n", name, h[name])
	}
	buf.WriteString("\r\n")
}

func cloneHeader(h Header) Header {
	c := make(Header, len(h)+1)
	for k, v := range h {
		c[k] = v
	}
	return c
}
