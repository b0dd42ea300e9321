package printing

import "strings"

// WrapText greedily breaks text into lines no wider than maxWidth.
//
// Words are separated by single spaces and accumulated while the line still
// fits; the overflowing word starts the next line. A word wider than
// maxWidth is never broken and sits alone on its line. Joining the result
// with " " gives back text unchanged. Line breaks inside text are not
// honoured: they stay inside their word.
func WrapText(text string, maxWidth float64, width func(string) float64) []string {
	if text == "" {
		return nil
	}

	var lines []string
	var current strings.Builder
	started := false
	for _, word := range strings.Split(text, " ") {
		candidate := word
		if started {
			candidate = current.String() + " " + word
		}
		if width(candidate) <= maxWidth {
			current.Reset()
			current.WriteString(candidate)
			started = true
			continue
		}
		if started {
			lines = append(lines, current.String())
		}
		current.Reset()
		current.WriteString(word)
		started = true
	}
	return append(lines, current.String())
}
