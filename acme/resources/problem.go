package resources

import (
	"errors"
	"fmt"
	"net/http"
)

// Problem is a struct representing a problem document from the server. It
// implements the error interface so protocol failures can be surfaced and
// inspected with errors.As.
//
// See https://tools.ietf.org/html/rfc8555#section-6.7
type Problem struct {
	// The problem type URN (e.g. "urn:ietf:params:acme:error:badNonce").
	Type string `json:"type,omitempty"`
	// A human readable description of the problem.
	Detail string `json:"detail,omitempty"`
	// The HTTP status code of the response carrying the problem.
	Status int `json:"status,omitempty"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("acme problem %q: %s (status %d)", p.Type, p.Detail, p.Status)
}

// IsType reports whether the problem has the given type URN.
func (p *Problem) IsType(t string) bool {
	return p != nil && p.Type == t
}

// IsConflict reports whether the problem was returned with HTTP 409. Some
// providers reject duplicate orders carrying an ARI "replaces" reference this
// way.
func (p *Problem) IsConflict() bool {
	return p != nil && p.Status == http.StatusConflict
}

// AsProblem unwraps a Problem from an error chain. The second return value is
// false when the error does not carry a problem document.
func AsProblem(err error) (*Problem, bool) {
	var prob *Problem
	if errors.As(err, &prob) {
		return prob, true
	}
	return nil, false
}
