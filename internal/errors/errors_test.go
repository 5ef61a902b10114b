package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(RenderFailed, "template exploded", cause)

	if err.Code != RenderFailed {
		t.Errorf("Code = %v, want %v", err.Code, RenderFailed)
	}
	if err.Message != "template exploded" {
		t.Errorf("Message = %q, want %q", err.Message, "template exploded")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      IOFailure,
			message:   "read request",
			cause:     errors.New("connection reset"),
			wantParts: []string{"IO_FAILURE", "read request", "connection reset"},
		},
		{
			name:      "without cause",
			code:      NotFound,
			message:   "no such page",
			wantParts: []string{"NOT_FOUND", "no such page"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("serve: %w", New(HeaderOverflow, "too many headers", nil))

	if got := CodeOf(wrapped); got != HeaderOverflow {
		t.Errorf("CodeOf(wrapped) = %v, want %v", got, HeaderOverflow)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{MalformedRequest, 400},
		{HeaderOverflow, 400},
		{BodyEncoding, 400},
		{NotFound, 404},
		{MethodNotAllowed, 405},
		{NotImplemented, 501},
		{RenderFailed, 500},
		{IOFailure, 500},
		{ErrorCode("SOMETHING_NEW"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := StatusFor(tt.code); got != tt.want {
				t.Errorf("StatusFor(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := New(NotFound, "missing", nil).WithDetails(map[string]string{"path": "/x"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["path"] != "/x" {
		t.Errorf("Details = %v, want path=/x", err.Details)
	}
}
