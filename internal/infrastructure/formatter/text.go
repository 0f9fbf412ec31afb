package formatter

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxPartLength is the per-message character limit of the target platform.
const MaxPartLength = 280

// Length counts characters the way the limit is enforced (runes).
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Shorten collapses whitespace and, when the text exceeds width, drops trailing
// words until the remainder plus placeholder fits. A single word longer than the
// available space is cut.
func Shorten(text string, width int, placeholder string) string {
	words := strings.Fields(text)
	collapsed := strings.Join(words, " ")
	if Length(collapsed) <= width {
		return collapsed
	}

	room := width - Length(placeholder)
	if room <= 0 {
		return truncateRunes(strings.TrimLeft(placeholder, " "), width)
	}

	var b strings.Builder
	used := 0
	for i, w := range words {
		need := Length(w)
		if i > 0 {
			need++
		}
		if used+need > room {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		used += need
	}

	if used == 0 {
		return truncateRunes(words[0], room) + placeholder
	}
	return b.String() + placeholder
}

// Clamp hard-limits s to width runes, ending with an ellipsis when cut.
func Clamp(s string, width int) string {
	if Length(s) <= width {
		return s
	}
	return truncateRunes(s, width-1) + "…"
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
