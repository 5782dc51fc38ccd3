package agent

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSafeErrorTruncatesDetail(t *testing.T) {
	detail := strings.Repeat("x", MaxSafeDetailLength+40)
	se := NewSafeError(SafeExecutionError, detail)
	if len(se.Detail) != MaxSafeDetailLength {
		t.Errorf("detail length = %d, want %d", len(se.Detail), MaxSafeDetailLength)
	}
}

func TestNewSafeErrorTruncationKeepsRunesIntact(t *testing.T) {
	// Three-byte runes, so the byte cap at 160 lands mid-rune.
	detail := strings.Repeat("日", MaxSafeDetailLength)
	se := NewSafeError(SafeExecutionError, detail)
	if len(se.Detail) > MaxSafeDetailLength {
		t.Errorf("detail length = %d, exceeds cap", len(se.Detail))
	}
	if !utf8.ValidString(se.Detail) {
		t.Errorf("truncated detail is not valid UTF-8: %q", se.Detail)
	}
}

func TestNewSafeErrorUnknownReasonFallsBack(t *testing.T) {
	se := NewSafeError(SafeErrorReason("BOGUS"), "")
	if se.Reason != SafeExecutionError {
		t.Errorf("reason = %s, want EXECUTION_ERROR", se.Reason)
	}
	if se.Message != "The tool failed to complete." {
		t.Errorf("message = %q", se.Message)
	}
}
