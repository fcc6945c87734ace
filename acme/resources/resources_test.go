package resources

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProblemIsType(t *testing.T) {
	prob := &Problem{Type: "urn:ietf:params:acme:error:badNonce"}
	require.True(t, prob.IsType("urn:ietf:params:acme:error:badNonce"))
	require.False(t, prob.IsType("urn:ietf:params:acme:error:malformed"))

	var nilProb *Problem
	require.False(t, nilProb.IsType("urn:ietf:params:acme:error:badNonce"))
}

func TestProblemIsConflict(t *testing.T) {
	require.True(t, (&Problem{Status: 409}).IsConflict())
	require.False(t, (&Problem{Status: 400}).IsConflict())

	var nilProb *Problem
	require.False(t, nilProb.IsConflict())
}

func TestAsProblem(t *testing.T) {
	prob := &Problem{Type: "urn:ietf:params:acme:error:unauthorized", Status: 403}

	got, ok := AsProblem(prob)
	require.True(t, ok)
	require.Equal(t, prob, got)

	// Problems survive wrapping.
	got, ok = AsProblem(fmt.Errorf("createOrder: %w", prob))
	require.True(t, ok)
	require.Equal(t, prob, got)

	_, ok = AsProblem(fmt.Errorf("plain error"))
	require.False(t, ok)
}

func TestDirectoryValid(t *testing.T) {
	dir := &Directory{
		NewNonce:   "https://example.com/nonce",
		NewAccount: "https://example.com/new-acct",
		NewOrder:   "https://example.com/new-order",
	}
	require.True(t, dir.Valid())

	require.False(t, (&Directory{NewNonce: "https://example.com/nonce"}).Valid())

	var nilDir *Directory
	require.False(t, nilDir.Valid())
}

func TestDirectoryMeta(t *testing.T) {
	dir := &Directory{}
	require.False(t, dir.SupportsRenewalInfo())
	require.False(t, dir.ExternalAccountRequired())
	require.Empty(t, dir.TermsOfService())

	dir.RenewalInfo = "https://example.com/renewalInfo"
	dir.Meta = &DirectoryMeta{
		TermsOfService:          "https://example.com/tos",
		ExternalAccountRequired: true,
	}
	require.True(t, dir.SupportsRenewalInfo())
	require.True(t, dir.ExternalAccountRequired())
	require.Equal(t, "https://example.com/tos", dir.TermsOfService())
}

func TestRenewalWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	info := &RenewalInfo{SuggestedWindow: RenewalWindow{Start: start, End: end}}

	require.False(t, info.ShouldRenewAt(start.Add(-time.Minute)))
	require.True(t, info.ShouldRenewAt(start))
	require.True(t, info.ShouldRenewAt(start.Add(24*time.Hour)))
	require.False(t, info.ShouldRenewAt(end))

	var nilInfo *RenewalInfo
	require.False(t, nilInfo.ShouldRenewAt(start))
}
