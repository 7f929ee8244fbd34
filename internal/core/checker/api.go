package checker

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kosinter/kosinter/internal/core"
)

const (
	instagramAPIBaseURL = "https://i.instagram.com"
	instagramAppID      = "936619743392459"
)

// APIStrategy queries a platform's internal JSON profile lookup instead of the
// public profile page. The account exists when UserPath resolves to a
// non-empty value.
type APIStrategy struct {
	BaseURL     string
	Path        string
	Query       string
	UserPath    string
	AppIDHeader string
	AppID       string
	ExtraFields map[string]string
}

// NewInstagramStrategy returns the strategy for Instagram's web_profile_info endpoint.
func NewInstagramStrategy() *APIStrategy {
	return &APIStrategy{
		BaseURL:     instagramAPIBaseURL,
		Path:        "/api/v1/users/web_profile_info/",
		Query:       "username",
		UserPath:    "data.user",
		AppIDHeader: "X-IG-App-ID",
		AppID:       instagramAppID,
		ExtraFields: map[string]string{
			"id":        "id",
			"full_name": "full_name",
			"private":   "is_private",
		},
	}
}

// Family returns core.FamilyAPI.
func (s *APIStrategy) Family() core.Family {
	return core.FamilyAPI
}

// Request targets the lookup endpoint; profileURL is only reported.
func (s *APIStrategy) Request(handle, profileURL string) Request {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = instagramAPIBaseURL
	}

	query := url.Values{}
	query.Set(s.Query, handle)

	header := http.Header{}
	header.Set("User-Agent", DefaultUserAgent)
	if s.AppIDHeader != "" && s.AppID != "" {
		header.Set(s.AppIDHeader, s.AppID)
	}

	return Request{
		URL:    base + s.Path + "?" + query.Encode(),
		Header: header,
	}
}

// Evaluate classifies the lookup response.
func (s *APIStrategy) Evaluate(handle string, resp *Response) Decision {
	switch resp.StatusCode {
	case http.StatusOK:
		if !gjson.ValidBytes(resp.Body) {
			return Decision{Verdict: core.VerdictUncertain, Reason: core.ReasonInvalidJSON, Note: core.NoteInvalidJSON}
		}
		user := gjson.GetBytes(resp.Body, s.UserPath)
		if !truthy(user) {
			return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonUserAbsent}
		}
		return Decision{Verdict: core.VerdictExists, Reason: core.ReasonUserPresent, Extra: s.extra(user)}
	case http.StatusNotFound:
		return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound}
	default:
		return uncertain(resp.StatusCode)
	}
}

func (s *APIStrategy) extra(user gjson.Result) map[string]any {
	if !user.IsObject() || len(s.ExtraFields) == 0 {
		return nil
	}
	extra := map[string]any{}
	for key, path := range s.ExtraFields {
		if value := user.Get(path); value.Exists() && value.Type != gjson.Null {
			extra[key] = value.Value()
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// truthy treats null, false, zero, and empty strings, objects and arrays as absent.
func truthy(value gjson.Result) bool {
	if !value.Exists() {
		return false
	}
	switch value.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != ""
	case gjson.JSON:
		if value.IsObject() {
			return len(value.Map()) > 0
		}
		return len(value.Array()) > 0
	default:
		return true
	}
}
