package pdftext

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", " ")

// Normalize unifies line endings, turns tabs into spaces and strips trailing
// whitespace from every line. Form feeds are kept as page separators.
func Normalize(text string) string {
	text = lineEndings.Replace(text)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \u00a0")
	}
	return strings.Join(lines, "\n")
}
