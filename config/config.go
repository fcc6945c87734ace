// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds every knob the issuance engine consumes. All fields load
// from the environment with sensible defaults so the binary runs against
// Let's Encrypt out of the box.
type Settings struct {
	// Base URI of the ACME service. May point directly at a directory
	// resource or at a service root that exposes one under "/directory".
	BaseURI string `env:"ACME_BASE_URI" envDefault:"https://acme-v02.api.letsencrypt.org/"`

	// Root directory for accounts and the order cache. Defaults to
	// "simple-acme" under the OS user config dir.
	ConfigPath string `env:"ACME_CONFIG_PATH"`

	// Bounded polling: attempts and fixed delay in seconds between attempts.
	RetryCount           int `env:"ACME_RETRY_COUNT" envDefault:"15"`
	RetryIntervalSeconds int `env:"ACME_RETRY_INTERVAL" envDefault:"5"`

	// Number of days a cached order (and its key material) may be reused.
	// Zero disables the order cache entirely.
	OrderCacheDays int `env:"ACME_ORDER_CACHE_DAYS" envDefault:"1"`

	// Requested certificate validity in days; zero leaves notAfter unset.
	ValidityDays int `env:"ACME_VALIDITY_DAYS" envDefault:"0"`

	// Encrypt account signers at rest.
	EncryptConfig bool `env:"ACME_ENCRYPT_CONFIG" envDefault:"false"`

	// Use POST-as-GET for resource fetches (RFC 8555 §6.3).
	PostAsGet bool `env:"ACME_POST_AS_GET" envDefault:"true"`

	// Optional proxy URL for all ACME traffic. Empty means use the
	// environment proxy settings.
	Proxy string `env:"ACME_PROXY"`

	// Optional PEM bundle of CA roots trusted for ACME server HTTPS.
	CABundle string `env:"ACME_CA_BUNDLE"`

	// Contact email registered on new accounts.
	ContactEmail string `env:"ACME_CONTACT_EMAIL"`

	// Accept the server's terms of service without prompting.
	AcceptTermsOfService bool `env:"ACME_ACCEPT_TOS" envDefault:"false"`

	// External account binding credentials, when supplied out of band.
	EabKeyIdentifier string `env:"ACME_EAB_KEY_IDENTIFIER"`
	EabKey           string `env:"ACME_EAB_KEY"`
	EabAlgorithm     string `env:"ACME_EAB_ALGORITHM" envDefault:"HS256"`

	// ZeroSSL API access key for self-service EAB acquisition.
	ZeroSSLAccessKey string `env:"ACME_ZEROSSL_ACCESS_KEY"`
}

// Load parses Settings from the environment and fills in the config root
// default.
func Load() (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parsing settings from environment: %w", err)
	}

	if settings.ConfigPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving user config dir: %w", err)
		}
		settings.ConfigPath = filepath.Join(base, "simple-acme")
	}

	return settings, nil
}

// RetryInterval returns the fixed polling delay.
func (s *Settings) RetryInterval() time.Duration {
	return time.Duration(s.RetryIntervalSeconds) * time.Second
}

// ReuseWindow returns the order cache reuse window. Zero disables caching.
func (s *Settings) ReuseWindow() time.Duration {
	return time.Duration(s.OrderCacheDays) * 24 * time.Hour
}

// OrdersPath returns the directory holding cached orders.
func (s *Settings) OrdersPath() string {
	return filepath.Join(s.ConfigPath, "Orders")
}
