package httpwire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxHeaders is the default cap on header lines per request.
	MaxHeaders = 100
	// MaxHeadBytes is the default cap on the request line plus headers.
	MaxHeadBytes = 64 << 10
	// MaxBodyBytes is the default cap on a Content-Length body.
	MaxBodyBytes = 8 << 20

	// leading empty lines tolerated before the request line
	maxLeadingBlankLines = 8
)

// Limits bounds what a RequestReader accepts.
type Limits struct {
	MaxHeaders   int
	MaxHeadBytes int
	MaxBodyBytes int64
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaders:   MaxHeaders,
		MaxHeadBytes: MaxHeadBytes,
		MaxBodyBytes: MaxBodyBytes,
	}
}

// Request is a parsed HTTP request.
type Request struct {
	Method  string
	Target  string // raw request-target as sent
	Path    string // percent-decoded path component of Target
	Query   string // raw query, without '?'
	Version string
	Header  Header
	Body    []byte // nil when no Content-Length was sent
}

// NewRequest returns a request for method and target with an empty header.
func NewRequest(method, target string) *Request {
	path, query, _ := strings.Cut(target, "?")
	return &Request{
		Method:  method,
		Target:  target,
		Path:    path,
		Query:   query,
		Version: "HTTP/1.1",
		Header:  make(Header),
	}
}

// WriteTo serializes the request in wire format.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s\r\n", r.Method, r.Target, r.Version)
	header := r.Header
	if len(r.Body) > 0 {
		header = cloneHeader(r.Header)
		header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	writeHeader(&buf, header)
	buf.Write(r.Body)
	return buf.WriteTo(w)
}

// RequestReader reads one HTTP/1.1 request from a byte stream.
type RequestReader struct {
	br     *bufio.Reader
	limits Limits
}

// NewRequestReader wraps r. An existing *bufio.Reader is used as is.
// Zero limits fall back to DefaultLimits.
func NewRequestReader(r io.Reader, limits Limits) *RequestReader {
	var br *bufio.Reader
	if casted, ok := r.(*bufio.Reader); ok {
		br = casted
	} else {
		br = bufio.NewReader(r)
	}
	defaults := DefaultLimits()
	if limits.MaxHeaders <= 0 {
		limits.MaxHeaders = defaults.MaxHeaders
	}
	if limits.MaxHeadBytes <= 0 {
		limits.MaxHeadBytes = defaults.MaxHeadBytes
	}
	if limits.MaxBodyBytes <= 0 {
		limits.MaxBodyBytes = defaults.MaxBodyBytes
	}
	return &RequestReader{br: br, limits: limits}
}

// ReadRequest reads a request from br with DefaultLimits.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	return NewRequestReader(br, DefaultLimits()).Read()
}

// Read accumulates lines until the head parses, then reads the body.
// Errors are always *ParseError.
func (r *RequestReader) Read() (*Request, error) {
	var head []byte
	blank := 0
	for {
		line, err := readLine(r.br, r.limits.MaxHeadBytes-len(head))
		if err != nil {
			if KindOf(err) != 0 {
				return nil, err
			}
			return nil, ioFailure("read request head", unexpectedEOF(err, len(head)+len(line)))
		}
		if len(head) == 0 && isBlankLine(line) {
			if blank++; blank > maxLeadingBlankLines {
				return nil, malformed("too many empty lines before request line")
			}
			continue
		}
		head = append(head, line...)

		req, err := parseHead(head, r.limits.MaxHeaders)
		if errors.Is(err, errIncomplete) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := r.readBody(req); err != nil {
			return nil, err
		}
		return req, nil
	}
}

func (r *RequestReader) readBody(req *Request) error {
	if _, ok := req.Header.Lookup("Transfer-Encoding"); ok {
		return malformed("transfer-encoding is not supported")
	}
	n, present, err := contentLength(req.Header)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	if n > r.limits.MaxBodyBytes {
		return malformed(fmt.Sprintf("body of %d bytes exceeds limit", n))
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r.br, body); err != nil {
		return ioFailure("read body", err)
	}
	if !utf8.Valid(body) {
		return &ParseError{Kind: BodyEncoding, Msg: "body is not valid UTF-8"}
	}
	req.Body = body
	return nil
}

// parseHead parses an accumulated head. It returns errIncomplete until the
// terminating empty line has been seen, but reports malformed lines and header
// overflow as soon as they are visible.
func parseHead(head []byte, maxHeaders int) (*Request, error) {
	lines, complete := splitHead(head)

	method, target, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}
	path, query, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	fields := lines[1:]
	if complete {
		fields = fields[:len(fields)-1]
	}
	if len(fields) > maxHeaders {
		return nil, overflow(fmt.Sprintf("more than %d header lines", maxHeaders))
	}

	header := make(Header, len(fields))
	for _, line := range fields {
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		header.Add(name, value)
	}
	if !complete {
		return nil, errIncomplete
	}

	return &Request{
		Method:  method,
		Target:  target,
		Path:    path,
		Query:   query,
		Version: version,
		Header:  header,
	}, nil
}

func parseRequestLine(line string) (method, target, version string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", "", "", malformed("request line must have exactly three tokens")
	}
	method, target, version = fields[0], fields[1], fields[2]
	if !isToken(method) {
		return "", "", "", malformed("invalid method")
	}
	if !strings.HasPrefix(version, "HTTP/") {
		return "", "", "", malformed("invalid protocol version")
	}
	return method, target, version, nil
}

// parseTarget accepts origin-form targets only.
func parseTarget(target string) (string, string, error) {
	if !strings.HasPrefix(target, "/") {
		return "", "", malformed("request target must be an absolute path")
	}
	rawPath, query, _ := strings.Cut(target, "?")
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", "", malformed("invalid percent-encoding in path")
	}
	return path, query, nil
}

// contentLength returns the declared body length and whether one was declared.
func contentLength(h Header) (int64, bool, error) {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, false, malformed("invalid Content-Length")
	}
	return n, true, nil
}

// splitHead splits head into lines without their terminators. head always
// ends with '\n'. complete reports whether the last line is empty.
func splitHead(head []byte) ([]string, bool) {
	text := strings.TrimSuffix(string(head), "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	complete := len(lines) > 1 && lines[len(lines)-1] == ""
	return lines, complete
}

// readLine reads one '\n'-terminated line, failing with HeaderOverflow once
// more than limit bytes would be buffered.
func readLine(br *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	for {
		frag, err := br.ReadSlice('\n')
		if len(line)+len(frag) > limit {
			return nil, overflow("request head too large")
		}
		line = append(line, frag...)
		if err == nil {
			return line, nil
		}
		if err != bufio.ErrBufferFull {
			return line, err
		}
	}
}

func isBlankLine(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0
}

// unexpectedEOF reports a clean EOF in the middle of a head as ErrUnexpectedEOF.
func unexpectedEOF(err error, read int) error {
	if err == io.EOF && read > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}
