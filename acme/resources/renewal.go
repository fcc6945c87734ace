package resources

import "time"

// RenewalInfo is the response of the ARI renewalInfo endpoint. The server
// suggests a window during which the client should renew the certificate the
// queried identifier refers to.
//
// See draft-ietf-acme-ari.
type RenewalInfo struct {
	// The window during which the server recommends renewal.
	SuggestedWindow RenewalWindow `json:"suggestedWindow"`
	// An optional URL pointing to an explanation of the suggestion, for
	// example a page describing an ongoing incident.
	ExplanationURL string `json:"explanationURL,omitempty"`
}

// RenewalWindow bounds the server-suggested renewal period.
type RenewalWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ShouldRenewAt reports whether the given time falls inside the suggested
// renewal window.
func (r *RenewalInfo) ShouldRenewAt(now time.Time) bool {
	if r == nil {
		return false
	}
	w := r.SuggestedWindow
	return !now.Before(w.Start) && now.Before(w.End)
}
