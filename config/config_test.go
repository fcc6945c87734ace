package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ACME_CONFIG_PATH", root)

	settings, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://acme-v02.api.letsencrypt.org/", settings.BaseURI)
	require.Equal(t, root, settings.ConfigPath)
	require.Equal(t, 15, settings.RetryCount)
	require.Equal(t, 5*time.Second, settings.RetryInterval())
	require.Equal(t, 24*time.Hour, settings.ReuseWindow())
	require.Zero(t, settings.ValidityDays)
	require.False(t, settings.EncryptConfig)
	require.True(t, settings.PostAsGet)
	require.Equal(t, "HS256", settings.EabAlgorithm)
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ACME_CONFIG_PATH", root)
	t.Setenv("ACME_BASE_URI", "https://acme.zerossl.com/v2/DV90")
	t.Setenv("ACME_RETRY_COUNT", "3")
	t.Setenv("ACME_RETRY_INTERVAL", "1")
	t.Setenv("ACME_ORDER_CACHE_DAYS", "0")
	t.Setenv("ACME_ENCRYPT_CONFIG", "true")
	t.Setenv("ACME_CONTACT_EMAIL", "ops@example.com")

	settings, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://acme.zerossl.com/v2/DV90", settings.BaseURI)
	require.Equal(t, 3, settings.RetryCount)
	require.Equal(t, time.Second, settings.RetryInterval())
	// A zero cache window disables order reuse.
	require.Zero(t, settings.ReuseWindow())
	require.True(t, settings.EncryptConfig)
	require.Equal(t, "ops@example.com", settings.ContactEmail)
}

func TestOrdersPath(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ACME_CONFIG_PATH", root)

	settings, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Orders"), settings.OrdersPath())
}
