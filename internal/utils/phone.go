package utils

import "strings"

// NormalizePhone reduces a phone number to bare digits: the "whatsapp:"
// channel prefix, the leading plus and any separators are stripped. The
// result is the session key, so normalizing an already-normalized value
// must be a no-op.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
