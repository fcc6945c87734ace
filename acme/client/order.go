package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	stdnet "net"
	"net/http"
	"strings"
	"time"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

// CreateOrderParams carries the optional inputs of CreateOrder.
type CreateOrderParams struct {
	// Requested certificate notAfter; zero leaves the field unset.
	NotAfter time.Time
	// ARI certificate identifier of the certificate the new order replaces.
	// Attached only when the server supports renewalInfo.
	Replaces string
}

// mapIdentifier maps an identifier to the protocol's identifier-type
// vocabulary. An empty type is inferred from the value; an unsupported type
// is a configuration error, never retried.
func mapIdentifier(id resources.Identifier) (resources.Identifier, error) {
	switch strings.ToLower(id.Type) {
	case acme.IdentifierDNS:
		return resources.Identifier{Type: acme.IdentifierDNS, Value: id.Value}, nil
	case acme.IdentifierIP:
		if stdnet.ParseIP(id.Value) == nil {
			return resources.Identifier{}, fmt.Errorf("invalid IP identifier value %q", id.Value)
		}
		return resources.Identifier{Type: acme.IdentifierIP, Value: id.Value}, nil
	case "":
		if stdnet.ParseIP(id.Value) != nil {
			return resources.Identifier{Type: acme.IdentifierIP, Value: id.Value}, nil
		}
		return resources.Identifier{Type: acme.IdentifierDNS, Value: id.Value}, nil
	default:
		return resources.Identifier{}, fmt.Errorf("unsupported identifier type %q", id.Type)
	}
}

// CreateOrder creates a new Order resource for the given identifiers. If the
// operation is successful a pointer to the Order with a populated ID field is
// returned.
//
// For more information on Order creation see "Applying for Certificate
// Issuance" in RFC 8555:
// https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) CreateOrder(identifiers []resources.Identifier, params CreateOrderParams) (*resources.Order, error) {
	if c.ActiveAccountID() == "" {
		return nil, fmt.Errorf("createOrder: active account is nil or has not been created")
	}
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("createOrder: at least one identifier is required")
	}

	mapped := make([]resources.Identifier, 0, len(identifiers))
	for _, id := range identifiers {
		m, err := mapIdentifier(id)
		if err != nil {
			return nil, fmt.Errorf("createOrder: %w", err)
		}
		mapped = append(mapped, m)
	}

	req := struct {
		Identifiers []resources.Identifier `json:"identifiers"`
		NotAfter    string                 `json:"notAfter,omitempty"`
		Replaces    string                 `json:"replaces,omitempty"`
	}{
		Identifiers: mapped,
	}
	if !params.NotAfter.IsZero() {
		req.NotAfter = params.NotAfter.Format(time.RFC3339)
	}
	if params.Replaces != "" && c.Directory.SupportsRenewalInfo() {
		req.Replaces = params.Replaces
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	newOrderURL := c.Directory.NewOrder
	if newOrderURL == "" {
		return nil, fmt.Errorf(
			"createOrder: ACME server missing %q endpoint in directory",
			acme.NEW_ORDER_ENDPOINT)
	}

	resp, err := c.signAndPost(newOrderURL, reqBody, nil)
	if err != nil {
		return nil, err
	}

	respOb := resp.Response
	if respOb.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("createOrder: server returned status code %d, expected %d",
			respOb.StatusCode, http.StatusCreated)
	}

	locHeader := respOb.Header.Get(acme.LOCATION_HEADER)
	if locHeader == "" {
		return nil, fmt.Errorf("createOrder: server returned response with no Location header")
	}

	order := &resources.Order{}
	if err := json.Unmarshal(resp.RespBody, order); err != nil {
		return nil, fmt.Errorf("createOrder: server returned invalid JSON: %s", err)
	}

	order.ID = locHeader
	c.log.WithField("id", order.ID).Info("Created new order")
	return order, nil
}

// UpdateOrder refreshes a given Order by fetching its ID URL from the ACME
// server. If this is successful the Order is mutated in place.
//
// Calling UpdateOrder is required to refresh an Order's Status field to
// synchronize the resource with the server-side representation.
func (c *Client) UpdateOrder(order *resources.Order) error {
	if order == nil {
		return fmt.Errorf("updateOrder: order must not be nil")
	}
	if order.ID == "" {
		return fmt.Errorf("updateOrder: order must have an ID")
	}

	resp, err := c.fetch(order.ID)
	if err != nil {
		return err
	}

	return json.Unmarshal(resp.RespBody, order)
}

// WaitForOrderStatus polls the order until its status matches the given
// status (or stops matching it, when negate is true), sleeping the poll
// interval between attempts and giving up after the attempt cap. On
// exhaustion the order is returned with its last observed status; the caller
// decides pass/fail.
func (c *Client) WaitForOrderStatus(order *resources.Order, status string, negate bool) (*resources.Order, error) {
	done := func(s string) bool {
		if negate {
			return s != status
		}
		return s == status
	}

	for try := 0; try < c.PollAttempts && !done(order.Status); try++ {
		c.sleep(c.PollInterval)
		if err := c.UpdateOrder(order); err != nil {
			return order, err
		}
	}
	return order, nil
}

// SubmitCsr finalizes the order with the given DER encoded CSR. The sequence
// is wait-for-ready, finalize, wait-until-not-processing. If the order never
// becomes ready it is returned unchanged and the caller must inspect the
// status. A missing finalize URL on a ready order is a fatal protocol error.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) SubmitCsr(order *resources.Order, csr []byte) (*resources.Order, error) {
	order, err := c.WaitForOrderStatus(order, acme.StatusReady, false)
	if err != nil {
		return order, err
	}
	if order.Status != acme.StatusReady {
		c.log.WithField("status", order.Status).Warn("Order not ready for finalization")
		return order, nil
	}

	if order.Finalize == "" {
		return order, fmt.Errorf("submitCsr: order %q has no finalize URL", order.ID)
	}

	reqBody, err := json.Marshal(struct {
		CSR string `json:"csr"`
	}{CSR: base64.RawURLEncoding.EncodeToString(csr)})
	if err != nil {
		return order, err
	}

	resp, err := c.signAndPost(order.Finalize, reqBody, nil)
	if err != nil {
		return order, err
	}
	if err := json.Unmarshal(resp.RespBody, order); err != nil {
		return order, fmt.Errorf("submitCsr: server returned invalid JSON: %s", err)
	}

	return c.WaitForOrderStatus(order, acme.StatusProcessing, true)
}

// GetCertificate downloads the certificate chain of a finalized order.
func (c *Client) GetCertificate(order *resources.Order) ([]byte, error) {
	if order == nil || order.Certificate == "" {
		return nil, fmt.Errorf("getCertificate: order has no certificate URL")
	}

	resp, err := c.fetch(order.Certificate)
	if err != nil {
		return nil, err
	}
	return resp.RespBody, nil
}

// RevokeCertificate revokes the given DER encoded certificate with the
// provided RFC 5280 reason code.
//
// See https://tools.ietf.org/html/rfc8555#section-7.6
func (c *Client) RevokeCertificate(certDER []byte, reason int) error {
	revokeURL := c.Directory.RevokeCert
	if revokeURL == "" {
		return fmt.Errorf(
			"revoke: ACME server missing %q endpoint in directory",
			acme.REVOKE_CERT_ENDPOINT)
	}

	reqBody, err := json.Marshal(struct {
		Certificate string `json:"certificate"`
		Reason      int    `json:"reason"`
	}{
		Certificate: base64.RawURLEncoding.EncodeToString(certDER),
		Reason:      reason,
	})
	if err != nil {
		return err
	}

	_, err = c.signAndPost(revokeURL, reqBody, nil)
	return err
}
