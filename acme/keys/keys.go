// Package keys offers the account signer type and utility functions for
// working with crypto.Signers, JWS, JWKs and PEM serialization.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Signature algorithm tags. The tag is fixed once an account exists; the only
// permitted substitution is the one-shot ES256 to RS256 fallback during
// account creation.
const (
	ES256 = "ES256"
	RS256 = "RS256"
)

// ErrAlgorithmUnavailable wraps key generation failures caused by the local
// crypto stack rather than by bad input. Callers may treat it as a signal to
// fall back to another algorithm.
var ErrAlgorithmUnavailable = errors.New("signature algorithm unavailable")

// Signer pairs account key material with its signature algorithm tag.
type Signer struct {
	// The private key used for signing JWS.
	Key crypto.Signer
	// The signature algorithm tag, ES256 or RS256.
	Algorithm string
}

// NewSigner generates a fresh private key for the given algorithm tag.
// Generation failures for a known algorithm are wrapped in
// ErrAlgorithmUnavailable; an unknown tag is a plain error.
func NewSigner(algorithm string) (*Signer, error) {
	var key crypto.Signer
	var err error
	switch algorithm {
	case ES256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case RS256:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		return nil, fmt.Errorf("unknown signature algorithm %q", algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: generating %s key: %s", ErrAlgorithmUnavailable, algorithm, err)
	}
	return &Signer{Key: key, Algorithm: algorithm}, nil
}

// JoseAlgorithm maps the Signer's tag to the go-jose signature algorithm.
func (s *Signer) JoseAlgorithm() jose.SignatureAlgorithm {
	switch s.Algorithm {
	case ES256:
		return jose.ES256
	case RS256:
		return jose.RS256
	}
	return "unknown"
}

// MarshalKey serializes the private key to DER. ECDSA keys use SEC 1, RSA
// keys PKCS#1.
func (s *Signer) MarshalKey() ([]byte, error) {
	switch k := s.Key.(type) {
	case *ecdsa.PrivateKey:
		return x509.MarshalECPrivateKey(k)
	case *rsa.PrivateKey:
		return x509.MarshalPKCS1PrivateKey(k), nil
	default:
		return nil, fmt.Errorf("signer was unknown type: %T", k)
	}
}

// UnmarshalKey reverses MarshalKey using the algorithm tag to select the DER
// format.
func UnmarshalKey(algorithm string, keyBytes []byte) (*Signer, error) {
	var key crypto.Signer
	var err error
	switch algorithm {
	case ES256:
		key, err = x509.ParseECPrivateKey(keyBytes)
	case RS256:
		key, err = x509.ParsePKCS1PrivateKey(keyBytes)
	default:
		err = fmt.Errorf("unknown signature algorithm %q", algorithm)
	}
	if err != nil {
		return nil, err
	}
	return &Signer{Key: key, Algorithm: algorithm}, nil
}

// PEM returns the PEM encoding of the private key.
func (s *Signer) PEM() (string, error) {
	var keyBytes []byte
	var keyHeader string
	var err error
	switch k := s.Key.(type) {
	case *ecdsa.PrivateKey:
		keyBytes, err = x509.MarshalECPrivateKey(k)
		keyHeader = "EC PRIVATE KEY"
	case *rsa.PrivateKey:
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
		keyHeader = "RSA PRIVATE KEY"
	default:
		err = fmt.Errorf("unknown key type: %T", k)
	}
	if err != nil {
		return "", err
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	})
	return string(pemBytes), nil
}

// JWKForSigner returns the public JWK for the signer's key.
func JWKForSigner(s *Signer) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       s.Key.Public(),
		Algorithm: s.Algorithm,
	}
}

// JWKJSON returns the JSON serialization of the signer's public JWK, or an
// empty string if it cannot be marshaled.
func JWKJSON(s *Signer) string {
	jwk := JWKForSigner(s)
	jwkJSON, err := json.Marshal(&jwk)
	if err != nil {
		return ""
	}
	return string(jwkJSON)
}

// JWKThumbprintBytes returns the SHA-256 thumbprint of the signer's public
// JWK.
func JWKThumbprintBytes(s *Signer) []byte {
	jwk := JWKForSigner(s)
	thumbBytes, _ := jwk.Thumbprint(crypto.SHA256)
	return thumbBytes
}

// JWKThumbprint returns the base64url encoded SHA-256 thumbprint of the
// signer's public JWK.
func JWKThumbprint(s *Signer) string {
	return base64.RawURLEncoding.EncodeToString(JWKThumbprintBytes(s))
}

// KeyAuth constructs the key authorization string for a challenge token.
func KeyAuth(s *Signer, token string) string {
	return fmt.Sprintf("%s.%s", token, JWKThumbprint(s))
}
