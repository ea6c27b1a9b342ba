package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeSender(t *testing.T) {
	canonical, display, err := NormalizeSender("5549999@s.whatsapp.net")
	if err != nil {
		t.Fatalf("NormalizeSender returned error: %v", err)
	}
	if canonical != "5549999@s.whatsapp.net" {
		t.Errorf("canonical = %s, want verbatim token", canonical)
	}
	if display != "5549999" {
		t.Errorf("display = %s, want suffix stripped", display)
	}
}

func TestNormalizeSenderNoSuffix(t *testing.T) {
	canonical, display, err := NormalizeSender("  5549999  ")
	if err != nil {
		t.Fatalf("NormalizeSender returned error: %v", err)
	}
	if canonical != "5549999" || display != "5549999" {
		t.Errorf("got canonical=%s display=%s, want trimmed token for both", canonical, display)
	}
}

func TestNormalizeSenderMissing(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		if _, _, err := NormalizeSender(raw); !errors.Is(err, ErrMissingSender) {
			t.Errorf("NormalizeSender(%q) error = %v, want ErrMissingSender", raw, err)
		}
	}
}

func TestResolveMessageID(t *testing.T) {
	if got := ResolveMessageID("abc123"); got != "abc123" {
		t.Errorf("caller-supplied id not kept: %s", got)
	}

	generated := ResolveMessageID("")
	if !strings.HasPrefix(generated, "msg_") {
		t.Errorf("generated id = %s, want msg_ prefix", generated)
	}
	if generated == ResolveMessageID("") {
		t.Error("generated ids must be unique per request")
	}
}

func TestResolveTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := ResolveTimestamp("", now); !got.Equal(now) {
		t.Errorf("empty timestamp = %v, want now", got)
	}

	parsed := ResolveTimestamp("2024-05-30T10:15:00Z", now)
	want := time.Date(2024, 5, 30, 10, 15, 0, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed timestamp = %v, want %v", parsed, want)
	}

	if got := ResolveTimestamp("not-a-timestamp", now); !got.Equal(now) {
		t.Errorf("unparseable timestamp = %v, want now fallback", got)
	}
}
