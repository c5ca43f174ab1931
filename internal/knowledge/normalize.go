package knowledge

import "strings"

// Normalize collapses every run of three or more identical characters into a
// single one ("hellooo" -> "hello") and trims surrounding space. Runs of two
// are kept, so "hello" is unchanged.
func Normalize(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(runes))
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			n = 1
		}
		for k := 0; k < n; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}
