package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeCapacity, "total %d exceeds %d", 251, 250)

	if err.Code != ErrCodeCapacity {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeCapacity)
	}
	if err.Message != "total 251 exceeds 250" {
		t.Errorf("Message = %v, want %v", err.Message, "total 251 exceeds 250")
	}

	expected := "CAPACITY_EXCEEDED: total 251 exceeds 250"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := Wrap(ErrCodeInvalidFormat, cause, "parse network.json")

	if err.Code != ErrCodeInvalidFormat {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidFormat)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
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
		{"matching code", New(ErrCodeLastLayer, "x"), ErrCodeLastLayer, true},
		{"non-matching code", New(ErrCodeLastLayer, "x"), ErrCodeCapacity, false},
		{"wrapped error", Wrap(ErrCodeInvalidFormat, New(ErrCodeInvalidLayer, "inner"), "outer"), ErrCodeInvalidFormat, true},
		{"non-Error type", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	err := New(ErrCodeBelowMinimum, "layer 2 needs at least one neuron")
	if got := GetCode(err); got != ErrCodeBelowMinimum {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeBelowMinimum)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := UserMessage(err); got != "layer 2 needs at least one neuron" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
