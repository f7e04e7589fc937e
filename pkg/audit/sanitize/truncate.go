package sanitize

import "unicode/utf8"

const (
	// TruncationMarker is appended to payloads cut at their size limit.
	TruncationMarker = "... [TRUNCATED]"

	// StackTruncationMarker is appended to stack traces cut at their size limit.
	StackTruncationMarker = "\n... [TRUNCATED]"

	// MaxStackTraceSize bounds captured stack traces regardless of the
	// payload size configured for an interception.
	MaxStackTraceSize = 4096
)

// Truncate returns text unchanged when it has at most maxSize characters.
// Longer text is cut to its first maxSize characters and TruncationMarker is
// appended, so the result is always a prefix of the input plus the marker.
// Lengths are counted in runes. A non-positive maxSize disables truncation.
func Truncate(text string, maxSize int) string {
	return truncate(text, maxSize, TruncationMarker)
}

// TruncateStackTrace bounds a stack trace to maxSize characters using
// StackTruncationMarker.
func TruncateStackTrace(text string, maxSize int) string {
	return truncate(text, maxSize, StackTruncationMarker)
}

func truncate(text string, maxSize int, marker string) string {
	if maxSize <= 0 || utf8.RuneCountInString(text) <= maxSize {
		return text
	}

	n := 0
	for i := range text {
		if n == maxSize {
			return text[:i] + marker
		}
		n++
	}
	return text
}
