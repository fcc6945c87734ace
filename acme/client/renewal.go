package client

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

// RenewalInfoResponse pairs a fetched RenewalInfo document with the ARI
// certificate identifier it was queried for. The identifier doubles as the
// "replaces" value for a successor order.
type RenewalInfoResponse struct {
	CertID      string
	RenewalInfo resources.RenewalInfo
}

// RenewalCertID builds the ARI certificate identifier for a certificate:
// base64url(authority key identifier) "." base64url(serial number), both
// without padding.
//
// See draft-ietf-acme-ari section 4.1.
func RenewalCertID(cert *x509.Certificate) (string, error) {
	if cert == nil {
		return "", fmt.Errorf("renewalCertID: certificate must not be nil")
	}
	if len(cert.AuthorityKeyId) == 0 {
		return "", fmt.Errorf("renewalCertID: certificate has no authority key identifier")
	}

	serialDER, err := asn1.Marshal(cert.SerialNumber)
	if err != nil {
		return "", fmt.Errorf("renewalCertID: serializing serial number: %w", err)
	}
	// Strip the DER tag and length, leaving the INTEGER content octets.
	serialDER = serialDER[2:]

	return base64.RawURLEncoding.EncodeToString(cert.AuthorityKeyId) +
		"." +
		base64.RawURLEncoding.EncodeToString(serialDER), nil
}

// GetRenewalInfo fetches the server's renewal suggestion for the given
// certificate. When the directory does not advertise a renewalInfo endpoint
// the extension is unsupported and (nil, nil) is returned.
func (c *Client) GetRenewalInfo(cert *x509.Certificate) (*RenewalInfoResponse, error) {
	if !c.Directory.SupportsRenewalInfo() {
		c.log.Debug("Directory does not advertise renewalInfo, skipping ARI")
		return nil, nil
	}

	certID, err := RenewalCertID(cert)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(c.Directory.RenewalInfo, "/") + "/" + certID

	// The renewalInfo endpoint is an unauthenticated GET in the ARI draft,
	// retried like every other network operation.
	netResp, err := c.getURL(url)
	if err != nil {
		return nil, err
	}

	resp := &RenewalInfoResponse{CertID: certID}
	if err := json.Unmarshal(netResp.RespBody, &resp.RenewalInfo); err != nil {
		return nil, fmt.Errorf("getRenewalInfo: server returned invalid JSON: %s", err)
	}
	return resp, nil
}
