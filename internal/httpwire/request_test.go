package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func readString(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	return ReadRequest(bufio.NewReader(strings.NewReader(raw)))
}

func TestReadRequest_RequestLineTokens(t *testing.T) {
	tests := []struct {
		method, target, version string
	}{
		{"GET", "/", "HTTP/1.1"},
		{"HEAD", "/notes/today", "HTTP/1.0"},
		{"POST", "/submit?x=1", "HTTP/1.1"},
		{"DELETE", "/a/b/c.md", "HTTP/1.1"},
		{"M-SEARCH", "/%7Euser", "HTTP/1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			raw := fmt.Sprintf("%s %s %s\r\n\r\n", tt.method, tt.target, tt.version)
			req, err := readString(t, raw)
			if err != nil {
				t.Fatalf("ReadRequest failed: %v", err)
			}
			if req.Method != tt.method || req.Target != tt.target || req.Version != tt.version {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)",
					req.Method, req.Target, req.Version, tt.method, tt.target, tt.version)
			}
		})
	}
}

func TestReadRequest_Headers(t *testing.T) {
	raw := "GET /page?flat=1 HTTP/1.1\r\n" +
		"Host: localhost:7878\r\n" +
		"accept: application/json, text/html\r\n" +
		"X-Partial:true\r\n" +
		"X-Empty:\r\n" +
		"\r\n"

	req, err := readString(t, raw)
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}

	if got := req.Header.Get("HOST"); got != "localhost:7878" {
		t.Errorf("Host = %q, want %q", got, "localhost:7878")
	}
	if got := req.Header.Get("Accept"); got != "application/json, text/html" {
		t.Errorf("Accept = %q", got)
	}
	if got := req.Header.Get("x-partial"); got != "true" {
		t.Errorf("X-Partial = %q, want true", got)
	}
	if v, ok := req.Header.Lookup("X-Empty"); !ok || v != "" {
		t.Errorf("X-Empty = %q, %v; want empty and present", v, ok)
	}
	if req.Path != "/page" || req.Query != "flat=1" {
		t.Errorf("Path/Query = %q/%q, want /page/flat=1", req.Path, req.Query)
	}
	if req.Body != nil {
		t.Errorf("Body = %q, want nil without Content-Length", req.Body)
	}
}

func TestReadRequest_RepeatedHeaderFolds(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nAccept: text/html\r\nAccept: application/json\r\n\r\n"
	req, err := readString(t, raw)
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if got := req.Header.Get("Accept"); got != "text/html, application/json" {
		t.Errorf("Accept = %q", got)
	}
}

func TestReadRequest_BareLF(t *testing.T) {
	req, err := readString(t, "GET /x HTTP/1.1\nHost: a\n\n")
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Header.Get("Host") != "a" {
		t.Errorf("Host = %q", req.Header.Get("Host"))
	}
}

func TestReadRequest_LeadingEmptyLines(t *testing.T) {
	req, err := readString(t, "\r\n\r\nGET / HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Method != "GET" {
		t.Errorf("Method = %q", req.Method)
	}

	_, err = readString(t, strings.Repeat("\r\n", 20)+"GET / HTTP/1.1\r\n\r\n")
	if KindOf(err) != Malformed {
		t.Errorf("KindOf(err) = %v, want Malformed", KindOf(err))
	}
}

func TestReadRequest_PercentDecoding(t *testing.T) {
	req, err := readString(t, "GET /my%20notes/caf%C3%A9 HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Path != "/my notes/café" {
		t.Errorf("Path = %q", req.Path)
	}
}

func TestReadRequest_Body(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello worldEXTRA"
	br := bufio.NewReader(strings.NewReader(raw))
	req, err := ReadRequest(br)
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if string(req.Body) != "hello world" {
		t.Errorf("Body = %q, want %q", req.Body, "hello world")
	}
	rest, _ := io.ReadAll(br)
	if string(rest) != "EXTRA" {
		t.Errorf("reader consumed past the body, rest = %q", rest)
	}
}

func TestReadRequest_ByteAtATime(t *testing.T) {
	raw := "GET /slow HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\n\r\nabc"
	br := bufio.NewReaderSize(iotest.OneByteReader(strings.NewReader(raw)), 16)
	req, err := ReadRequest(br)
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Path != "/slow" || string(req.Body) != "abc" {
		t.Errorf("got path %q body %q", req.Path, req.Body)
	}
}

func TestReadRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ParseErrorKind
	}{
		{"two tokens", "GET /\r\n\r\n", Malformed},
		{"four tokens", "GET / HTTP/1.1 extra\r\n\r\n", Malformed},
		{"bad version", "GET / FTP/1.0\r\n\r\n", Malformed},
		{"bad method", "G(T / HTTP/1.1\r\n\r\n", Malformed},
		{"absolute-form target", "GET http://example.com/ HTTP/1.1\r\n\r\n", Malformed},
		{"bad percent-encoding", "GET /%zz HTTP/1.1\r\n\r\n", Malformed},
		{"header without colon", "GET / HTTP/1.1\r\nHost localhost\r\n\r\n", Malformed},
		{"header with space in name", "GET / HTTP/1.1\r\nBad Name: x\r\n\r\n", Malformed},
		{"folded header", "GET / HTTP/1.1\r\nA: b\r\n c\r\n\r\n", Malformed},
		{"bad content length", "POST / HTTP/1.1\r\nContent-Length: ten\r\n\r\n", Malformed},
		{"negative content length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", Malformed},
		{"repeated content length", "POST / HTTP/1.1\r\nContent-Length: 2\r\nContent-Length: 2\r\n\r\nok", Malformed},
		{"chunked", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n", Malformed},
		{"truncated body", "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nshort", Io},
		{"invalid utf-8 body", "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\n\xff\xfe", BodyEncoding},
		{"eof before blank line", "GET / HTTP/1.1\r\nHost: x\r\n", Io},
		{"empty stream", "", Io},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, tt.raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestReadRequest_HeaderOverflow(t *testing.T) {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i <= MaxHeaders; i++ {
		fmt.Fprintf(&b, "X-H%d: v\r\n", i)
	}
	b.WriteString("\r\n")

	_, err := readString(t, b.String())
	if KindOf(err) != HeaderOverflow {
		t.Fatalf("KindOf(err) = %v, want HeaderOverflow (err=%v)", KindOf(err), err)
	}

	// exactly at the cap is fine
	var ok strings.Builder
	ok.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < MaxHeaders; i++ {
		fmt.Fprintf(&ok, "X-H%d: v\r\n", i)
	}
	ok.WriteString("\r\n")
	if _, err := readString(t, ok.String()); err != nil {
		t.Errorf("request with %d headers failed: %v", MaxHeaders, err)
	}
}

// An endless header stream must fail once the cap is crossed rather than
// waiting for a terminator that never comes.
func TestReadRequest_HeaderOverflowWithoutTerminator(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = io.WriteString(pw, "GET / HTTP/1.1\r\n")
		for i := 0; ; i++ {
			if _, err := fmt.Fprintf(pw, "X-H%d: v\r\n", i); err != nil {
				return
			}
		}
	}()
	defer pr.Close()

	_, err := NewRequestReader(pr, Limits{MaxHeaders: 10}).Read()
	if KindOf(err) != HeaderOverflow {
		t.Fatalf("KindOf(err) = %v, want HeaderOverflow", KindOf(err))
	}
}

func TestReadRequest_HeadBytesLimit(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 2048) + "\r\n\r\n"
	_, err := NewRequestReader(strings.NewReader(raw), Limits{MaxHeadBytes: 1024}).Read()
	if KindOf(err) != HeaderOverflow {
		t.Errorf("KindOf(err) = %v, want HeaderOverflow", KindOf(err))
	}
}

func TestReadRequest_BodyLimit(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\n" + strings.Repeat("a", 100)
	_, err := NewRequestReader(strings.NewReader(raw), Limits{MaxBodyBytes: 10}).Read()
	if KindOf(err) != Malformed {
		t.Errorf("KindOf(err) = %v, want Malformed", KindOf(err))
	}
}

func TestReadRequest_IoWrapsCause(t *testing.T) {
	_, err := readString(t, "GET / HTTP/1.1\r\nHost")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want to wrap io.ErrUnexpectedEOF", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != Io {
		t.Errorf("err = %#v, want *ParseError{Kind: Io}", err)
	}
}

func TestRequest_WriteToRoundTrip(t *testing.T) {
	req := NewRequest("POST", "/notes?draft=1")
	req.Header.Set("host", "example")
	req.Body = []byte("payload")

	var b strings.Builder
	if _, err := req.WriteTo(&b); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	got, err := readString(t, b.String())
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if got.Method != "POST" || got.Path != "/notes" || got.Query != "draft=1" {
		t.Errorf("got %s %s ? %s", got.Method, got.Path, got.Query)
	}
	if got.Header.Get("Host") != "example" || got.Header.Get("Content-Length") != "7" {
		t.Errorf("headers = %v", got.Header)
	}
	if string(got.Body) != "payload" {
		t.Errorf("Body = %q", got.Body)
	}
	if _, ok := req.Header.Lookup("Content-Length"); ok {
		t.Error("WriteTo must not mutate the request header")
	}
}

func TestCanonicalName(t *testing.T) {
	tests := map[string]string{
		"content-length":   "Content-Length",
		"CONTENT-TYPE":     "Content-Type",
		"x-request-id":     "X-Request-Id",
		"accept":           "Accept",
		"www-authenticate": "Www-Authenticate",
	}
	for in, want := range tests {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}
