package checker

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// fold returns the case-folded form of s for case-insensitive matching.
// Casers carry state, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// containsFolded reports whether any marker occurs in the folded text.
func containsFolded(foldedText string, markers []string) bool {
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(foldedText, fold(marker)) {
			return true
		}
	}
	return false
}

// containsExact reports whether any marker occurs verbatim in body.
func containsExact(body []byte, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}

// pageTitle returns the text of the first <title> element, if any.
func pageTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = atom.Lookup(name) == atom.Title
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}
