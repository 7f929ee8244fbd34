package checker

import (
	"net/http"
	"strings"

	"github.com/kosinter/kosinter/internal/core"
)

// ConservativeHTMLStrategy reads a profile page that renders differently for
// missing, suspended and live accounts. When no marker matches it answers
// uncertain rather than risk a false positive.
type ConservativeHTMLStrategy struct {
	AcceptLanguage string

	// NotExistFragments must appear verbatim; NotExistTexts match case-insensitively.
	NotExistFragments []string
	NotExistTexts     []string

	SuspendedTexts []string
	SuspendedPaths []string

	// OwnershipMarkers are formats with one %s for the case-folded handle.
	OwnershipMarkers []string
}

// NewTwitterStrategy returns the strategy for twitter.com / x.com profiles.
func NewTwitterStrategy() *ConservativeHTMLStrategy {
	return &ConservativeHTMLStrategy{
		AcceptLanguage: "en-US,en;q=0.9",
		NotExistFragments: []string{
			`<span class="css-1jxf684 r-bcqeeo r-1ttztb7 r-qvutc0 r-poiln3">Hmm...this page doesn’t exist. Try searching for something else.</span>`,
		},
		NotExistTexts: []string{
			"hmm...this page doesn’t exist. try searching for something else.",
			"hmm...this page doesn't exist. try searching for something else.",
		},
		SuspendedTexts: []string{"account suspended"},
		SuspendedPaths: []string{"/account/suspended"},
		OwnershipMarkers: []string{
			"(@%s) / x",
			"(@%s) / twitter",
			`"screen_name":"%s"`,
			`"screen_name": "%s"`,
			"@%s ·",
		},
	}
}

// Family returns core.FamilyHTML.
func (s *ConservativeHTMLStrategy) Family() core.Family {
	return core.FamilyHTML
}

// Request fetches the public profile page in English.
func (s *ConservativeHTMLStrategy) Request(handle, profileURL string) Request {
	header := http.Header{}
	header.Set("User-Agent", DefaultUserAgent)
	if s.AcceptLanguage != "" {
		header.Set("Accept-Language", s.AcceptLanguage)
	}
	return Request{URL: profileURL, Header: header}
}

// Evaluate applies the markers in priority order; the first match wins.
func (s *ConservativeHTMLStrategy) Evaluate(handle string, resp *Response) Decision {
	page := fold(string(resp.Body))
	extra := titleExtra(resp.Body)

	if containsExact(resp.Body, s.NotExistFragments) || containsFolded(page, s.NotExistTexts) {
		return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonNotFoundMarker, Extra: extra}
	}

	if resp.StatusCode == http.StatusNotFound {
		return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound, Extra: extra}
	}

	finalURL := strings.ToLower(resp.FinalURL)
	if containsFolded(page, s.SuspendedTexts) || containsAnyLower(finalURL, s.SuspendedPaths) {
		return Decision{Verdict: core.VerdictExists, Reason: core.ReasonSuspended, Extra: extra}
	}

	foldedHandle := fold(handle)
	for _, format := range s.OwnershipMarkers {
		if strings.Contains(page, fold(strings.ReplaceAll(format, "%s", foldedHandle))) {
			return Decision{Verdict: core.VerdictExists, Reason: core.ReasonOwnershipMarker, Extra: extra}
		}
	}

	decision := uncertain(resp.StatusCode)
	decision.Extra = extra
	return decision
}

func containsAnyLower(value string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(value, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func titleExtra(body []byte) map[string]any {
	if title := pageTitle(body); title != "" {
		return map[string]any{"title": title}
	}
	return nil
}
