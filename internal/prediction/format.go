package prediction

import "strings"

// FormatSymptomName turns a symptom identifier into a display label:
// underscores become spaces and every ASCII letter that starts a word is
// upper-cased. Nothing else is touched, so repeated underscores leave repeated
// spaces.
func FormatSymptomName(symptom string) string {
	spaced := strings.ReplaceAll(symptom, "_", " ")

	var b strings.Builder
	b.Grow(len(spaced))
	prevWord := false
	for i := 0; i < len(spaced); i++ {
		c := spaced[i]
		if !prevWord && 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
		prevWord = isWordByte(spaced[i])
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}
