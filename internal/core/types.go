package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Family identifies the classification strategy used for a platform.
type Family string

const (
	FamilyAPI       Family = "api"
	FamilyHTML      Family = "html"
	FamilyHeuristic Family = "heuristic"
)

// Verdict is the three-valued outcome of an existence check.
type Verdict int

const (
	VerdictUncertain Verdict = 0
	VerdictExists    Verdict = 1
	VerdictNotExists Verdict = 2
)

// String returns the wire name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictExists:
		return "exists"
	case VerdictNotExists:
		return "not_exists"
	default:
		return "uncertain"
	}
}

// MarshalJSON encodes the verdict by name.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a verdict name.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "exists":
		*v = VerdictExists
	case "not_exists":
		*v = VerdictNotExists
	case "uncertain":
		*v = VerdictUncertain
	default:
		return fmt.Errorf("unknown verdict %q", name)
	}
	return nil
}

// Reason is a diagnostic subcode explaining a verdict.
type Reason string

const (
	ReasonStatusOK         Reason = "status_ok"
	ReasonStatusNotFound   Reason = "status_not_found"
	ReasonUserPresent      Reason = "user_present"
	ReasonUserAbsent       Reason = "user_absent"
	ReasonNotFoundMarker   Reason = "not_found_marker"
	ReasonSuspended        Reason = "suspended"
	ReasonOwnershipMarker  Reason = "ownership_marker"
	ReasonHandleRejected   Reason = "handle_rejected"
	ReasonInvalidJSON      Reason = "invalid_json"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonUnexpectedStatus Reason = "unexpected_status"
	ReasonNoMarker         Reason = "no_marker"
	ReasonTransportError   Reason = "transport_error"
)

// Notes attached to uncertain verdicts.
const (
	NoteUncertain   = "uncertain"
	NoteInvalidJSON = "invalid_json"
)

// Provenance captures metadata about how a check was resolved.
type Provenance struct {
	CheckID     string    `json:"check_id"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
	Source      Family    `json:"source"`
	Server      string    `json:"server,omitempty"`
	Attempts    int       `json:"attempts,omitempty"`
	ToolVersion string    `json:"tool_version"`
}

// CheckResult reports the verdict for one (platform, handle) pair.
//
// StatusCode is zero when no HTTP response was received.
type CheckResult struct {
	Platform   string         `json:"platform"`
	Handle     string         `json:"handle"`
	URL        string         `json:"url"`
	Verdict    Verdict        `json:"verdict"`
	Reason     Reason         `json:"reason"`
	StatusCode int            `json:"status_code,omitempty"`
	Note       string         `json:"note,omitempty"`
	ExtraData  map[string]any `json:"extra_data,omitempty"`
	Provenance Provenance     `json:"provenance"`
}

// HasStatus reports whether an HTTP status was observed.
func (r *CheckResult) HasStatus() bool {
	return r != nil && r.StatusCode != 0
}
