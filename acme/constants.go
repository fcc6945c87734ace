// Package acme provides ACME protocol constants. See RFC 8555.
package acme

const (
	// Directory constants
	// See https://tools.ietf.org/html/rfc8555#section-9.7.5

	// The ACME directory key for the newNonce endpoint
	NEW_NONCE_ENDPOINT = "newNonce"
	// The ACME directory key for the newAccount endpoint.
	NEW_ACCOUNT_ENDPOINT = "newAccount"
	// The ACME directory key for the newOrder endpoint.
	NEW_ORDER_ENDPOINT = "newOrder"
	// The ACME directory key for the revokeCert endpoint.
	REVOKE_CERT_ENDPOINT = "revokeCert"
	// The ACME directory key for the keyChange endpoint.
	KEY_CHANGE_ENDPOINT = "keyChange"
	// The directory key for the renewalInfo endpoint (ARI,
	// draft-ietf-acme-ari). Servers that do not implement ARI omit it.
	RENEWAL_INFO_ENDPOINT = "renewalInfo"

	// The HTTP response header used by ACME to communicate a fresh nonce. See
	// https://tools.ietf.org/html/rfc8555#section-9.3
	REPLAY_NONCE_HEADER = "Replay-Nonce"
	// The HTTP response header carrying the URL of a newly created resource.
	LOCATION_HEADER = "Location"
)

const (
	// Status values shared by Order, Authorization and Challenge resources.
	// See https://tools.ietf.org/html/rfc8555#section-7.1.6
	StatusPending     = "pending"
	StatusReady       = "ready"
	StatusProcessing  = "processing"
	StatusValid       = "valid"
	StatusInvalid     = "invalid"
	StatusDeactivated = "deactivated"
	StatusRevoked     = "revoked"
)

const (
	// Identifier types from the ACME identifier registry. See
	// https://tools.ietf.org/html/rfc8555#section-9.7.7 and RFC 8738 for the
	// "ip" type.
	IdentifierDNS = "dns"
	IdentifierIP  = "ip"
)

const (
	// Problem document types from the urn:ietf:params:acme:error namespace.
	// See https://tools.ietf.org/html/rfc8555#section-6.7
	problemNamespace       = "urn:ietf:params:acme:error:"
	ProblemBadNonce        = problemNamespace + "badNonce"
	ProblemBadSignatureAlg = problemNamespace + "badSignatureAlgorithm"
	ProblemMalformed       = problemNamespace + "malformed"
	ProblemRateLimited     = problemNamespace + "rateLimited"
	ProblemServerInternal  = problemNamespace + "serverInternal"
	ProblemUnauthorized    = problemNamespace + "unauthorized"
	ProblemUserActionReq   = problemNamespace + "userActionRequired"
)
