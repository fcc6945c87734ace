// Package accounts persists and loads ACME account identities: the locally
// generated signer and the server-assigned account resource, stored as two
// separate artifacts under the configuration root.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/simple-acme/simple-acme-sub001/acme/keys"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	"github.com/simple-acme/simple-acme-sub001/storage"
)

const (
	signerFileBase       = "Signer_v2"
	registrationFileBase = "Registration_v2"
)

// Account pairs the locally generated signer with the server-assigned account
// resource. Details is nil until the account has been created server-side.
type Account struct {
	// The server-side account resource. Refreshed in place when contacts
	// change.
	Details *resources.AccountDetails
	// The signing key material and its algorithm tag. Immutable once the
	// account exists; the only permitted substitution is the ES256 to RS256
	// fallback during account creation.
	Signer *keys.Signer
}

// ID returns the account URL, or an empty string when the account has not
// been created with the ACME server.
func (a *Account) ID() string {
	if a == nil || a.Details == nil {
		return ""
	}
	return a.Details.ID
}

// Manager stores and loads accounts under a configuration root. The signer
// artifact is optionally encrypted at rest.
type Manager struct {
	root      string
	encrypt   bool
	protector *storage.Protector
	log       *logrus.Logger

	// newSigner is swapped out in tests to exercise the fallback path.
	newSigner func(algorithm string) (*keys.Signer, error)
}

// NewManager creates a Manager rooted at the given configuration directory.
// When encrypt is true signer artifacts are sealed at rest.
func NewManager(root string, encrypt bool, log *logrus.Logger) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("configuration root must not be empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	protector, err := storage.NewProtector(root)
	if err != nil {
		return nil, err
	}
	return &Manager{
		root:      root,
		encrypt:   encrypt,
		protector: protector,
		log:       log,
		newSigner: keys.NewSigner,
	}, nil
}

// NewAccount generates a fresh account identity with the given algorithm tag
// (ES256 when empty). If ES256 key generation fails with a capability error
// the manager falls back once to RS256; any other failure propagates.
func (m *Manager) NewAccount(keyType string) (*Account, error) {
	if keyType == "" {
		keyType = keys.ES256
	}

	signer, err := m.newSigner(keyType)
	if err != nil && keyType == keys.ES256 && errors.Is(err, keys.ErrAlgorithmUnavailable) {
		m.log.WithError(err).Warn("ES256 key generation unavailable, falling back to RS256")
		signer, err = m.newSigner(keys.RS256)
	}
	if err != nil {
		return nil, err
	}

	return &Account{Signer: signer}, nil
}

// signerFile holds the serialized signer artifact.
type signerFile struct {
	Algorithm string `json:"algorithm"`
	Key       []byte `json:"key"`
}

// registrationFile holds the serialized account details artifact.
type registrationFile struct {
	ID      string                    `json:"id"`
	Details *resources.AccountDetails `json:"details"`
}

func (m *Manager) signerPath(name string) string {
	return filepath.Join(m.root, artifactName(signerFileBase, name))
}

func (m *Manager) registrationPath(name string) string {
	return filepath.Join(m.root, artifactName(registrationFileBase, name))
}

func artifactName(base, name string) string {
	if name == "" {
		return base
	}
	return base + "." + name
}

// StoreAccount persists the account's signer and details artifacts under the
// given account name (empty for the default account). Writes are atomic.
func (m *Manager) StoreAccount(account *Account, name string) error {
	if account == nil || account.Signer == nil {
		return fmt.Errorf("account must have a signer")
	}

	keyBytes, err := account.Signer.MarshalKey()
	if err != nil {
		return fmt.Errorf("serializing signer: %w", err)
	}
	signerJSON, err := json.MarshalIndent(signerFile{
		Algorithm: account.Signer.Algorithm,
		Key:       keyBytes,
	}, "", "  ")
	if err != nil {
		return err
	}

	if m.encrypt {
		signerJSON, err = m.protector.Seal(signerJSON)
		if err != nil {
			return fmt.Errorf("sealing signer: %w", err)
		}
	}
	if err := storage.WriteFileAtomic(m.signerPath(name), signerJSON, 0600); err != nil {
		return err
	}

	regJSON, err := json.MarshalIndent(registrationFile{
		ID:      account.ID(),
		Details: account.Details,
	}, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(m.registrationPath(name), regJSON, 0600)
}

// LoadAccount loads a previously stored account by name. A missing artifact
// is not an error: (nil, nil) is returned and callers interpret it as
// "create new".
func (m *Manager) LoadAccount(name string) (*Account, error) {
	signerJSON, err := os.ReadFile(m.signerPath(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading signer artifact: %w", err)
	}

	regJSON, err := os.ReadFile(m.registrationPath(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registration artifact: %w", err)
	}

	if storage.Sealed(signerJSON) {
		signerJSON, err = m.protector.Open(signerJSON)
		if err != nil {
			return nil, fmt.Errorf("opening sealed signer: %w", err)
		}
	}

	var rawSigner signerFile
	if err := json.Unmarshal(signerJSON, &rawSigner); err != nil {
		return nil, fmt.Errorf("parsing signer artifact: %w", err)
	}
	signer, err := keys.UnmarshalKey(rawSigner.Algorithm, rawSigner.Key)
	if err != nil {
		return nil, fmt.Errorf("restoring signer: %w", err)
	}

	var rawReg registrationFile
	if err := json.Unmarshal(regJSON, &rawReg); err != nil {
		return nil, fmt.Errorf("parsing registration artifact: %w", err)
	}
	details := rawReg.Details
	if details == nil {
		details = &resources.AccountDetails{}
	}
	details.ID = rawReg.ID

	return &Account{Details: details, Signer: signer}, nil
}

// ListAccounts enumerates the named accounts that have a registration
// artifact in the configuration root. The default (unnamed) account is
// reported as an empty string.
func (m *Manager) ListAccounts() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", m.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if fileName == registrationFileBase {
			names = append(names, "")
			continue
		}
		if strings.HasPrefix(fileName, registrationFileBase+".") {
			names = append(names, strings.TrimPrefix(fileName, registrationFileBase+"."))
		}
	}
	return names, nil
}

// Encrypt re-saves every stored account's signer under the currently
// configured at-rest protection mode. Used when toggling the encryption
// setting.
func (m *Manager) Encrypt() error {
	names, err := m.ListAccounts()
	if err != nil {
		return err
	}

	for _, name := range names {
		account, err := m.LoadAccount(name)
		if err != nil {
			return fmt.Errorf("loading account %q: %w", name, err)
		}
		if account == nil {
			continue
		}
		if err := m.StoreAccount(account, name); err != nil {
			return fmt.Errorf("re-saving account %q: %w", name, err)
		}
		m.log.WithField("account", name).Info("re-saved account signer")
	}
	return nil
}
