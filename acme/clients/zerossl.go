package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/simple-acme/simple-acme-sub001/acme/client"
)

// zeroSSLAPIBase is the REST endpoint for self-service external account
// binding credentials. Overridden in tests.
var zeroSSLAPIBase = "https://api.zerossl.com"

// isZeroSSL reports whether the directory host belongs to ZeroSSL, the one
// provider with a self-service credential API.
func isZeroSSL(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "acme.zerossl.com" || strings.HasSuffix(hostname, ".zerossl.com")
}

// zeroSSLResponse is the eab-credentials response shape. On failure success
// is false and the error object carries a provider-specific code and type.
type zeroSSLResponse struct {
	Success    bool   `json:"success"`
	EabKid     string `json:"eab_kid"`
	EabHmacKey string `json:"eab_hmac_key"`
	Error      struct {
		Code int    `json:"code"`
		Type string `json:"type"`
	} `json:"error"`
}

// zeroSSLEabForAccessKey obtains binding credentials using a ZeroSSL API
// access key.
func (m *Manager) zeroSSLEabForAccessKey(accessKey string) (*client.ExternalAccountBinding, error) {
	endpoint := fmt.Sprintf("%s/acme/eab-credentials?access_key=%s",
		zeroSSLAPIBase, url.QueryEscape(accessKey))
	return m.zeroSSLEab(endpoint, "")
}

// zeroSSLEabForEmail obtains binding credentials by registering the contact
// email with ZeroSSL. No pre-existing API account is needed.
func (m *Manager) zeroSSLEabForEmail(email string) (*client.ExternalAccountBinding, error) {
	endpoint := zeroSSLAPIBase + "/acme/eab-credentials-email"
	form := url.Values{"email": []string{email}}.Encode()
	return m.zeroSSLEab(endpoint, form)
}

// zeroSSLEab POSTs to a ZeroSSL credential endpoint and converts the result
// into an ExternalAccountBinding. The returned HMAC key stays in its decoded
// form; ZeroSSL always issues HS256 credentials.
func (m *Manager) zeroSSLEab(endpoint, form string) (*client.ExternalAccountBinding, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := m.net.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting ZeroSSL binding credentials: %w", err)
	}

	var parsed zeroSSLResponse
	if err := json.Unmarshal(resp.RespBody, &parsed); err != nil {
		return nil, fmt.Errorf("ZeroSSL returned invalid JSON: %s", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("ZeroSSL refused to issue binding credentials: %s (code %d)",
			parsed.Error.Type, parsed.Error.Code)
	}

	key, err := decodeEabKey(parsed.EabHmacKey)
	if err != nil {
		return nil, fmt.Errorf("decoding ZeroSSL binding key: %w", err)
	}

	m.log.WithField("kid", parsed.EabKid).Info("Obtained ZeroSSL binding credentials")
	return &client.ExternalAccountBinding{
		Algorithm:     "HS256",
		KeyIdentifier: parsed.EabKid,
		Key:           key,
	}, nil
}
