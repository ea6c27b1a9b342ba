package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeSender validates and canonicalizes a raw sender token. The
// canonical form is the verbatim token (storage and equality key); the
// display form has the channel suffix stripped (e.g. "@s.whatsapp.net").
func NormalizeSender(raw string) (canonical, display string, err error) {
	canonical = strings.TrimSpace(raw)
	if canonical == "" {
		return "", "", ErrMissingSender
	}

	display = canonical
	if idx := strings.IndexByte(display, '@'); idx > 0 {
		display = display[:idx]
	}

	return canonical, display, nil
}

// ResolveMessageID returns the caller-supplied id when present, otherwise a
// generated token unique per request.
func ResolveMessageID(given string) string {
	if given != "" {
		return given
	}
	return "msg_" + uuid.NewString()
}

// ResolveTimestamp parses the caller-supplied timestamp, falling back to now
// when absent or unparseable.
func ResolveTimestamp(given string, now time.Time) time.Time {
	if given == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, given); err == nil {
			return ts
		}
	}
	return now
}
