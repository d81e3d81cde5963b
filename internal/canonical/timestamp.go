package canonical

import (
	"time"
)

// TimestampLayout is the single accepted textual timestamp form:
// ISO-8601 UTC with exactly millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in canonical form: UTC, millisecond precision.
// Sub-millisecond components are truncated, not rounded, so formatting is
// stable under repeated parse/format cycles.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// ParseTimestamp parses a canonical timestamp string.
//
// Any deviation from the canonical layout is rejected: missing milliseconds,
// extra precision, numeric zone offsets, or non-UTC zones all fail with
// SchemaViolation. The round-trip check catches forms the time package would
// otherwise accept leniently.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, Violation("timestamp", "not ISO-8601 UTC with millisecond precision: %q", s)
	}
	if FormatTimestamp(t) != s {
		return time.Time{}, Violation("timestamp", "not in canonical form: %q", s)
	}
	return t, nil
}

// TruncateTimestamp clamps t to the canonical resolution (UTC, milliseconds).
// Entity and event timestamps are stored at this resolution so that the
// value hashed is the value persisted.
func TruncateTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
