package client

import (
	"crypto/x509"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

func TestRenewalCertID(t *testing.T) {
	cert := &x509.Certificate{
		AuthorityKeyId: []byte{0x01, 0x02, 0x03, 0x04},
		SerialNumber:   big.NewInt(0x0102),
	}

	certID, err := RenewalCertID(cert)
	require.NoError(t, err)
	// base64url(aki) "." base64url(serial INTEGER content octets).
	require.Equal(t, "AQIDBA.AQI", certID)
}

func TestRenewalCertIDErrors(t *testing.T) {
	_, err := RenewalCertID(nil)
	require.Error(t, err)

	_, err = RenewalCertID(&x509.Certificate{SerialNumber: big.NewInt(1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "authority key identifier")
}

func TestGetRenewalInfoRetriesTransientFailure(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/renewalInfo/AQIDBA.AQI", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{
			"suggestedWindow": {
				"start": "2026-09-01T00:00:00Z",
				"end": "2026-09-03T00:00:00Z"
			}
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, false, nil)
	c.Directory.RenewalInfo = srv.URL + "/renewalInfo"

	resp, err := c.GetRenewalInfo(&x509.Certificate{
		AuthorityKeyId: []byte{0x01, 0x02, 0x03, 0x04},
		SerialNumber:   big.NewInt(0x0102),
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, "AQIDBA.AQI", resp.CertID)
}

func TestGetRenewalInfoUnsupported(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, false, nil)
	// The test directory advertises no renewalInfo endpoint.
	resp, err := c.GetRenewalInfo(&x509.Certificate{
		AuthorityKeyId: []byte{0x01},
		SerialNumber:   big.NewInt(1),
	})
	require.NoError(t, err)
	require.Nil(t, resp)
}

func TestGetRenewalInfo(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/renewalInfo/AQIDBA.AQI", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{
			"suggestedWindow": {
				"start": "2026-09-01T00:00:00Z",
				"end": "2026-09-03T00:00:00Z"
			},
			"explanationURL": "https://example.com/incident"
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, false, nil)
	c.Directory.RenewalInfo = srv.URL + "/renewalInfo"

	resp, err := c.GetRenewalInfo(&x509.Certificate{
		AuthorityKeyId: []byte{0x01, 0x02, 0x03, 0x04},
		SerialNumber:   big.NewInt(0x0102),
	})
	require.NoError(t, err)
	require.Equal(t, "AQIDBA.AQI", resp.CertID)
	require.Equal(t, resources.RenewalWindow{
		Start: start,
		End:   start.Add(48 * time.Hour),
	}, resp.RenewalInfo.SuggestedWindow)
	require.Equal(t, "https://example.com/incident", resp.RenewalInfo.ExplanationURL)
	require.True(t, resp.RenewalInfo.ShouldRenewAt(start.Add(time.Hour)))
}
