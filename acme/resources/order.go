package resources

// The Identifier resource represents a subject identifier that can be
// included in a certificate.
//
// See:
// https://tools.ietf.org/html/rfc8555#section-7.4
// https://tools.ietf.org/html/rfc8555#section-9.7.7
//
// Most ACME servers support "dns" identifiers; servers implementing RFC 8738
// additionally accept "ip" identifiers.
type Identifier struct {
	// The Type of the Identifier value.
	Type string `json:"type"`
	// The Identifier value.
	Value string `json:"value"`
}

// The Order resource represents a collection of identifiers that an account
// wishes to create a Certificate for.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.3
//
// To understand the Status changes specified by ACME for the Order resource
// see https://tools.ietf.org/html/rfc8555#section-7.1.6
type Order struct {
	// The server-assigned ID (a URL) identifying the Order. It is the value
	// of the Location header of the newOrder response, not a wire field.
	ID string `json:"-"`
	// The Status of the Order. One of "pending", "ready", "processing",
	// "valid" or "invalid".
	Status string `json:"status,omitempty"`
	// An RFC 3339 timestamp after which the server considers the Order
	// invalid.
	Expires string `json:"expires,omitempty"`
	// The Identifiers the Order wishes to finalize a Certificate for once the
	// Order is ready.
	Identifiers []Identifier `json:"identifiers"`
	// The requested notBefore certificate field, RFC 3339 encoded.
	NotBefore string `json:"notBefore,omitempty"`
	// The requested notAfter certificate field, RFC 3339 encoded.
	NotAfter string `json:"notAfter,omitempty"`
	// The ARI certificate identifier of the certificate this Order replaces,
	// if any. See draft-ietf-acme-ari.
	Replaces string `json:"replaces,omitempty"`
	// The error that occurred while processing the Order, if any.
	Error *Problem `json:"error,omitempty"`
	// A list of URLs for Authorization resources the server specifies for the
	// Order Identifiers.
	Authorizations []string `json:"authorizations,omitempty"`
	// A URL used to Finalize the Order with a CSR once the Order has a status
	// of "ready".
	Finalize string `json:"finalize,omitempty"`
	// A URL used to fetch the Certificate issued by the server for the Order
	// after being Finalized. Present and not-empty when the Order has a
	// status of "valid".
	Certificate string `json:"certificate,omitempty"`
}

// String returns the Order's ID URL.
func (o Order) String() string {
	return o.ID
}
