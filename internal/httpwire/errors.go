package httpwire

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies request parsing failures.
type ParseErrorKind int

const (
	// Malformed covers a bad request line, header line or Content-Length.
	Malformed ParseErrorKind = iota + 1
	// HeaderOverflow means too many header lines or an oversized head.
	HeaderOverflow
	// BodyEncoding means the body was not valid UTF-8.
	BodyEncoding
	// Io means the stream failed or ended early. Always fatal to the connection.
	Io
)

// String returns a string representation of the kind
func (k ParseErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case HeaderOverflow:
		return "header overflow"
	case BodyEncoding:
		return "body encoding"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// ParseError is returned by ReadRequest and ReadResponse.
type ParseError struct {
	Kind ParseErrorKind
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the ParseErrorKind in err's chain, or 0 if there is none.
func KindOf(err error) ParseErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// errIncomplete signals that the head needs more lines. It never leaves the package.
var errIncomplete = errors.New("incomplete head")

func malformed(msg string) error {
	return &ParseError{Kind: Malformed, Msg: msg}
}

func overflow(msg string) error {
	return &ParseError{Kind: HeaderOverflow, Msg: msg}
}

func ioFailure(msg string, err error) error {
	return &ParseError{Kind: Io, Msg: msg, Err: err}
}
