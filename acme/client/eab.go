package client

import (
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/simple-acme/simple-acme-sub001/acme/keys"
)

// ExternalAccountBinding holds the provider-issued pre-shared credential used
// to bind a new ACME account to an external identity. The signed payload is
// ephemeral and never persisted past the single newAccount call.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3.4
type ExternalAccountBinding struct {
	// The MAC algorithm name: HS256, HS384 or HS512.
	Algorithm string
	// The key identifier issued by the provider.
	KeyIdentifier string
	// The decoded HMAC key issued by the provider.
	Key []byte
}

// macAlgorithm maps the algorithm name to the matching HMAC variant. An
// unrecognized algorithm is a fatal configuration error, never silently
// ignored.
func (eab *ExternalAccountBinding) macAlgorithm() (jose.SignatureAlgorithm, error) {
	switch eab.Algorithm {
	case "HS256":
		return jose.HS256, nil
	case "HS384":
		return jose.HS384, nil
	case "HS512":
		return jose.HS512, nil
	default:
		return "", fmt.Errorf("unsupported external account binding algorithm %q", eab.Algorithm)
	}
}

// Sign produces the flat-JSON externalAccountBinding JWS for the given
// account signer. The protected header is {alg, kid, url} where url is the
// server's newAccount endpoint; the payload is the account's public key in
// JWK form, signed with the provider-issued HMAC key.
func (eab *ExternalAccountBinding) Sign(accountSigner *keys.Signer, newAccountURL string) (json.RawMessage, error) {
	if eab.KeyIdentifier == "" {
		return nil, fmt.Errorf("external account binding requires a key identifier")
	}
	if len(eab.Key) == 0 {
		return nil, fmt.Errorf("external account binding requires a key")
	}

	alg, err := eab.macAlgorithm()
	if err != nil {
		return nil, err
	}

	jwk := keys.JWKForSigner(accountSigner)
	payload, err := json.Marshal(&jwk)
	if err != nil {
		return nil, fmt.Errorf("serializing account public key: %w", err)
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: eab.Key},
		&jose.SignerOptions{
			ExtraHeaders: map[jose.HeaderKey]interface{}{
				"kid": eab.KeyIdentifier,
				"url": newAccountURL,
			},
		})
	if err != nil {
		return nil, err
	}

	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(signed.FullSerialize()), nil
}
