package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "artifact %s missing", "org:name:1.0")

	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeNotFound)
	}
	if err.Message != "artifact org:name:1.0 missing" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeTransport, cause, "fetching %s", "https://repo/a.jar")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error does not match cause with errors.Is")
	}
	want := "TRANSPORT_ERROR: fetching https://repo/a.jar: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeChecksumMismatch, "bad hash"), ErrCodeChecksumMismatch, true},
		{"different code", New(ErrCodeNotFound, "missing"), ErrCodeChecksumMismatch, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeParentCycle, "loop")), ErrCodeParentCycle, true},
		{"plain error", stderrors.New("plain"), ErrCodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if code := GetCode(New(ErrCodeParse, "bad xml")); code != ErrCodeParse {
		t.Errorf("GetCode = %q, want %q", code, ErrCodeParse)
	}
	if code := GetCode(stderrors.New("plain")); code != "" {
		t.Errorf("GetCode = %q, want empty", code)
	}
}

func TestErrorRendersFatalMarker(t *testing.T) {
	err := New(ErrCodeParentCycle, "parent cycle through org:a:1")
	want := "PARENT_CYCLE (fatal): parent cycle through org:a:1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := New(ErrCodeNotFound, "missing")
	if strings.Contains(plain.Error(), "fatal") {
		t.Errorf("non-fatal error carries fatal marker: %q", plain.Error())
	}
}

func TestErrorFatalMethod(t *testing.T) {
	if !New(ErrCodeVersionConflict, "x").Fatal() {
		t.Error("VERSION_CONFLICT not fatal on the method")
	}
	if New(ErrCodeChecksumMismatch, "x").Fatal() {
		t.Error("CHECKSUM_MISMATCH reported fatal")
	}
}

func TestFatal(t *testing.T) {
	tests := []struct {
		code  Code
		fatal bool
	}{
		{ErrCodeMaxIterations, true},
		{ErrCodeParentCycle, true},
		{ErrCodePropertyCycle, true},
		{ErrCodeVersionConflict, true},
		{ErrCodeNotFound, false},
		{ErrCodeTransport, false},
		{ErrCodeCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := Fatal(New(tt.code, "x")); got != tt.fatal {
				t.Errorf("Fatal(%s) = %v, want %v", tt.code, got, tt.fatal)
			}
		})
	}
}
