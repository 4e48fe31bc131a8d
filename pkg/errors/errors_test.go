package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMalformedGraph, "missing <%s> section", "rr_edges")

	if err.Code != ErrCodeMalformedGraph {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMalformedGraph)
	}

	if err.Message != "missing <rr_edges> section" {
		t.Errorf("Message = %v, want %v", err.Message, "missing <rr_edges> section")
	}

	expected := "MALFORMED_GRAPH: missing <rr_edges> section"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := Wrap(ErrCodeMissingInput, cause, "open rr_graph.xml")

	if err.Code != ErrCodeMissingInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMissingInput)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDanglingReference, "test"),
			code:     ErrCodeDanglingReference,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeDanglingReference, "test"),
			code:     ErrCodeMalformedGraph,
			expected: false,
		},
		{
			name:     "outer code of nested error",
			err:      Wrap(ErrCodeMalformedGraph, New(ErrCodeUnsupportedSegment, "inner"), "outer"),
			code:     ErrCodeMalformedGraph,
			expected: true,
		},
		{
			name:     "inner code of nested error",
			err:      Wrap(ErrCodeMalformedGraph, New(ErrCodeUnsupportedSegment, "inner"), "outer"),
			code:     ErrCodeUnsupportedSegment,
			expected: true,
		},
		{
			name:     "wrapped by fmt.Errorf",
			err:      fmt.Errorf("load: %w", New(ErrCodeMissingInput, "gone")),
			code:     ErrCodeMissingInput,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeMalformedGraph,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeMalformedGraph,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeInvalidRate, "test"), ErrCodeInvalidRate},
		{"wrapped", fmt.Errorf("job: %w", New(ErrCodeSourceChanged, "x")), ErrCodeSourceChanged},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidConfig, "friendly message"), "friendly message"},
		{"with cause", Wrap(ErrCodeMissingInput, errors.New("not found"), "open a.xml"), "open a.xml: not found"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
