package checker

import (
	"net/http"

	"github.com/kosinter/kosinter/internal/core"
)

// HeuristicStrategy decides by status code, after checking optional
// platform-specific "not found" texts.
type HeuristicStrategy struct {
	NotFoundMarkers []string
}

// Family returns core.FamilyHeuristic.
func (s *HeuristicStrategy) Family() core.Family {
	return core.FamilyHeuristic
}

// Request fetches the profile page.
func (s *HeuristicStrategy) Request(handle, profileURL string) Request {
	header := http.Header{}
	header.Set("User-Agent", DefaultUserAgent)
	return Request{URL: profileURL, Header: header}
}

// Evaluate classifies the profile page response.
func (s *HeuristicStrategy) Evaluate(handle string, resp *Response) Decision {
	if len(s.NotFoundMarkers) > 0 && containsFolded(fold(string(resp.Body)), s.NotFoundMarkers) {
		return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonNotFoundMarker}
	}
	return statusDecision(resp.StatusCode, core.ReasonStatusOK)
}
