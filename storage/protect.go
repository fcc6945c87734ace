package storage

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

// sealedPrefix marks an artifact as protected at rest. Artifacts without the
// prefix are stored in the clear.
var sealedPrefix = []byte("sealed.v1:")

const protectionKeyFile = "protection.key"

// Protector seals and opens secret artifacts with a symmetric key stored next
// to the configuration it protects. This guards signer material against
// casual disclosure of the config directory, not against an attacker with
// access to the same filesystem root.
type Protector struct {
	key [32]byte
}

// NewProtector loads the protection key from the given configuration root,
// generating and persisting a fresh key on first use.
func NewProtector(root string) (*Protector, error) {
	path := filepath.Join(root, protectionKeyFile)

	keyBytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		keyBytes = make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			return nil, fmt.Errorf("generating protection key: %w", err)
		}
		if err := WriteFileAtomic(path, keyBytes, 0600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading protection key %q: %w", path, err)
	}

	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("protection key %q has invalid length %d", path, len(keyBytes))
	}

	p := &Protector{}
	copy(p.key[:], keyBytes)
	return p, nil
}

// Seal encrypts plain and prepends the sealed marker.
func (p *Protector) Seal(plain []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := append([]byte{}, sealedPrefix...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, &p.key), nil
}

// Open decrypts a sealed artifact. It fails on artifacts that are not sealed
// or that do not authenticate; callers should check Sealed first when
// clear-text artifacts are also acceptable.
func (p *Protector) Open(sealed []byte) ([]byte, error) {
	if !Sealed(sealed) {
		return nil, fmt.Errorf("artifact is not sealed")
	}
	body := sealed[len(sealedPrefix):]
	if len(body) < 24 {
		return nil, fmt.Errorf("sealed artifact too short")
	}

	var nonce [24]byte
	copy(nonce[:], body[:24])
	plain, ok := secretbox.Open(nil, body[24:], &nonce, &p.key)
	if !ok {
		return nil, fmt.Errorf("sealed artifact failed to authenticate")
	}
	return plain, nil
}

// Sealed reports whether data carries the sealed marker.
func Sealed(data []byte) bool {
	return bytes.HasPrefix(data, sealedPrefix)
}
