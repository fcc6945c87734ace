package accounts

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simple-acme/simple-acme-sub001/acme/keys"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	"github.com/simple-acme/simple-acme-sub001/storage"
)

func newTestManager(t *testing.T, encrypt bool) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir(), encrypt, nil)
	require.NoError(t, err)
	return manager
}

func TestNewAccountDefaultsToES256(t *testing.T) {
	manager := newTestManager(t, false)

	account, err := manager.NewAccount("")
	require.NoError(t, err)
	require.Equal(t, keys.ES256, account.Signer.Algorithm)
	require.Empty(t, account.ID())
}

func TestNewAccountFallsBackToRS256(t *testing.T) {
	manager := newTestManager(t, false)
	var requested []string
	manager.newSigner = func(algorithm string) (*keys.Signer, error) {
		requested = append(requested, algorithm)
		if algorithm == keys.ES256 {
			return nil, fmt.Errorf("%w: no entropy", keys.ErrAlgorithmUnavailable)
		}
		return keys.NewSigner(algorithm)
	}

	account, err := manager.NewAccount("")
	require.NoError(t, err)
	require.Equal(t, keys.RS256, account.Signer.Algorithm)
	require.Equal(t, []string{keys.ES256, keys.RS256}, requested)
}

func TestNewAccountOtherErrorPropagates(t *testing.T) {
	manager := newTestManager(t, false)
	errBoom := fmt.Errorf("boom")
	manager.newSigner = func(string) (*keys.Signer, error) {
		return nil, errBoom
	}

	_, err := manager.NewAccount("")
	require.ErrorIs(t, err, errBoom)
}

func TestNewAccountNoFallbackForExplicitRS256(t *testing.T) {
	manager := newTestManager(t, false)
	calls := 0
	manager.newSigner = func(string) (*keys.Signer, error) {
		calls++
		return nil, fmt.Errorf("%w: broken", keys.ErrAlgorithmUnavailable)
	}

	_, err := manager.NewAccount(keys.RS256)
	require.ErrorIs(t, err, keys.ErrAlgorithmUnavailable)
	require.Equal(t, 1, calls)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	manager := newTestManager(t, false)

	account, err := manager.NewAccount("")
	require.NoError(t, err)
	account.Details = &resources.AccountDetails{
		ID:      "https://example.com/acct/1",
		Status:  "valid",
		Contact: []string{"mailto:ops@example.com"},
	}
	require.NoError(t, manager.StoreAccount(account, "staging"))

	loaded, err := manager.LoadAccount("staging")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "https://example.com/acct/1", loaded.ID())
	require.Equal(t, []string{"mailto:ops@example.com"}, loaded.Details.Contact)
	require.Equal(t, account.Signer.Key.Public(), loaded.Signer.Key.Public())
}

func TestLoadAccountMissing(t *testing.T) {
	manager := newTestManager(t, false)

	loaded, err := manager.LoadAccount("nonexistent")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestListAccounts(t *testing.T) {
	manager := newTestManager(t, false)

	names, err := manager.ListAccounts()
	require.NoError(t, err)
	require.Empty(t, names)

	defaultAcct, err := manager.NewAccount("")
	require.NoError(t, err)
	require.NoError(t, manager.StoreAccount(defaultAcct, ""))

	namedAcct, err := manager.NewAccount("")
	require.NoError(t, err)
	require.NoError(t, manager.StoreAccount(namedAcct, "staging"))

	names, err = manager.ListAccounts()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"", "staging"}, names)
}

func TestStoreAccountEncrypted(t *testing.T) {
	manager := newTestManager(t, true)

	account, err := manager.NewAccount("")
	require.NoError(t, err)
	account.Details = &resources.AccountDetails{ID: "https://example.com/acct/2"}
	require.NoError(t, manager.StoreAccount(account, ""))

	raw, err := os.ReadFile(manager.signerPath(""))
	require.NoError(t, err)
	require.True(t, storage.Sealed(raw))

	loaded, err := manager.LoadAccount("")
	require.NoError(t, err)
	require.Equal(t, account.Signer.Key.Public(), loaded.Signer.Key.Public())
}

func TestEncryptMigration(t *testing.T) {
	root := t.TempDir()
	plaintext, err := NewManager(root, false, nil)
	require.NoError(t, err)

	account, err := plaintext.NewAccount("")
	require.NoError(t, err)
	account.Details = &resources.AccountDetails{ID: "https://example.com/acct/3"}
	require.NoError(t, plaintext.StoreAccount(account, ""))

	raw, err := os.ReadFile(plaintext.signerPath(""))
	require.NoError(t, err)
	require.False(t, storage.Sealed(raw))

	// Flip the protection mode on and migrate.
	encrypted, err := NewManager(root, true, nil)
	require.NoError(t, err)
	require.NoError(t, encrypted.Encrypt())

	raw, err = os.ReadFile(encrypted.signerPath(""))
	require.NoError(t, err)
	require.True(t, storage.Sealed(raw))

	loaded, err := encrypted.LoadAccount("")
	require.NoError(t, err)
	require.Equal(t, account.Signer.Key.Public(), loaded.Signer.Key.Public())
}
