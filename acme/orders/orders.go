// Package orders maintains a content-addressed cache of in-flight ACME
// orders. Reusing a recent order for an unchanged target avoids re-issuing
// requests that would trip provider rate limits.
package orders

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/client"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	"github.com/simple-acme/simple-acme-sub001/storage"
)

const (
	orderSuffix = ".order.json"
	keysSuffix  = ".order.keys"
)

// ACMEClient is the slice of client operations the order manager drives.
// *client.Client satisfies it; tests substitute fakes.
type ACMEClient interface {
	ActiveAccountID() string
	CreateOrder(identifiers []resources.Identifier, params client.CreateOrderParams) (*resources.Order, error)
	UpdateOrder(order *resources.Order) error
	DeactivateAuthorization(authzURL string) error
}

// RunLevel adjusts cache behavior for a single issuance run.
type RunLevel int

const (
	// RunNormal reuses cached orders inside the reuse window.
	RunNormal RunLevel = iota
	// RunNoCache discards any cached order regardless of age, deactivating
	// its authorizations best-effort first.
	RunNoCache
)

// Order is the cache entity: the issuance request inputs plus the cached
// server-side order state. The fingerprint over the inputs decides reuse
// versus recreation.
type Order struct {
	// The identifiers the certificate is requested for.
	Identifiers []resources.Identifier
	// The requested common name, usually one of the identifiers.
	CommonName string
	// A user-supplied CSR in DER form. Mutually exclusive with CsrOptions.
	CsrBytes []byte
	// Serialized options for the CSR-generating collaborator, used when no
	// explicit CSR is supplied. Any change invalidates the fingerprint.
	CsrOptions json.RawMessage
	// A user-configured private key location, part of the fingerprint.
	KeyPath string

	// CacheKeyFile is the deterministic key-file path assigned by the
	// manager when caching is enabled, so a downstream CSR collaborator can
	// persist and reuse the private key. Never assigned when the reuse
	// window is zero.
	CacheKeyFile string

	// URL of the order resource at the ACME server.
	URL string
	// The last known server-side order state.
	Payload *resources.Order
}

// Manager decides order reuse versus recreation and owns the on-disk cache.
type Manager struct {
	ordersDir    string
	window       time.Duration
	validityDays int
	log          *logrus.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewManager creates a Manager writing cache files to ordersDir. A reuse
// window of zero disables caching entirely. validityDays controls the
// requested certificate notAfter; zero leaves it unset.
func NewManager(ordersDir string, window time.Duration, validityDays int, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		ordersDir:    ordersDir,
		window:       window,
		validityDays: validityDays,
		log:          log,
		now:          time.Now,
	}
}

// hashField writes one length-prefixed field into the fingerprint hash. The
// prefix keeps adjacent fields from running together, so moving bytes across
// a field boundary always changes the digest.
func hashField(h hash.Hash, field []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(field)))
	h.Write(length[:])
	h.Write(field)
}

// CacheKey computes the deterministic fingerprint of an order request under
// the given account: a SHA-1 over the account id, the common name, the
// identifier values sorted case-insensitively, the CSR bytes, the serialized
// CSR options and the key-file path, each length-prefixed. Identical inputs
// under an unchanged account always produce the same key; any change to any
// field yields a different one.
func CacheKey(order *Order, accountID string) string {
	h := sha1.New()
	hashField(h, []byte(accountID))
	hashField(h, []byte(strings.ToLower(order.CommonName)))

	values := make([]string, 0, len(order.Identifiers))
	for _, id := range order.Identifiers {
		values = append(values, strings.ToLower(id.Value))
	}
	sort.Strings(values)
	for _, v := range values {
		hashField(h, []byte(v))
	}

	hashField(h, order.CsrBytes)
	hashField(h, order.CsrOptions)
	hashField(h, []byte(order.KeyPath))

	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCreate returns a usable order for the request: a cached one when the
// reuse window permits, a freshly created one otherwise. When the window is
// zero no key-file path is assigned and a fresh order is always created.
// A nil return means "do not proceed": creation failed and was logged.
func (m *Manager) GetOrCreate(order *Order, ac ACMEClient, previousCert *x509.Certificate, level RunLevel) *Order {
	if m.window > 0 {
		key := CacheKey(order, ac.ActiveAccountID())
		order.CacheKeyFile = filepath.Join(m.ordersDir, key+keysSuffix)
		if cached := m.GetFromCache(key, order, ac, level); cached != nil {
			return cached
		}
	}
	return m.CreateOrder(order, ac, previousCert)
}

// cachedOrder is the on-disk representation of a cached order.
type cachedOrder struct {
	URL     string           `json:"url"`
	Payload *resources.Order `json:"payload"`
}

// GetFromCache loads the cached order for the given fingerprint. Stale files
// are swept first. A miss is returned (and the cache entry discarded) when
// the caller requested no cache, when the server-side refresh fails, or when
// the refreshed status is neither ready nor valid. Cache problems are never
// fatal.
func (m *Manager) GetFromCache(key string, order *Order, ac ACMEClient, level RunLevel) *Order {
	m.DeleteStaleFiles()

	orderPath := filepath.Join(m.ordersDir, key+orderSuffix)
	raw, err := os.ReadFile(orderPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		m.log.WithError(err).Warn("Unable to read cached order")
		m.deleteCacheFiles(key)
		return nil
	}

	var cached cachedOrder
	if err := json.Unmarshal(raw, &cached); err != nil {
		m.log.WithError(err).Warn("Cached order is corrupt, discarding")
		m.deleteCacheFiles(key)
		return nil
	}

	if level == RunNoCache {
		m.deactivateAuthorizations(cached.Payload, ac)
		m.deleteCacheFiles(key)
		return nil
	}

	payload := &resources.Order{ID: cached.URL}
	if err := ac.UpdateOrder(payload); err != nil {
		m.log.WithError(err).Warn("Unable to refresh cached order, discarding")
		m.deleteCacheFiles(key)
		return nil
	}

	if payload.Status != acme.StatusReady && payload.Status != acme.StatusValid {
		m.log.WithField("status", payload.Status).Info("Cached order no longer usable, discarding")
		m.deleteCacheFiles(key)
		return nil
	}

	m.log.WithField("url", cached.URL).Info("Reusing cached order")
	order.URL = cached.URL
	order.Payload = payload
	return order
}

// deactivateAuthorizations releases the authorizations of a discarded cached
// order. Failures are logged, never propagated.
func (m *Manager) deactivateAuthorizations(payload *resources.Order, ac ACMEClient) {
	if payload == nil {
		return
	}
	for _, authzURL := range payload.Authorizations {
		if err := ac.DeactivateAuthorization(authzURL); err != nil {
			m.log.WithError(err).WithField("authz", authzURL).
				Warn("Unable to deactivate authorization on discarded order")
		}
	}
}

// CreateOrder creates a fresh order at the ACME server. On a provider
// conflict while a "replaces" hint was attached, creation is retried exactly
// once with the hint removed. Any other failure is logged and a nil order is
// returned; callers must treat nil as "do not proceed".
func (m *Manager) CreateOrder(order *Order, ac ACMEClient, previousCert *x509.Certificate) *Order {
	params := client.CreateOrderParams{}

	if m.validityDays > 0 {
		params.NotAfter = m.now().UTC().
			AddDate(0, 0, m.validityDays).
			Truncate(time.Hour)
	}

	if previousCert != nil {
		replaces, err := client.RenewalCertID(previousCert)
		if err != nil {
			m.log.WithError(err).Debug("No replaces hint for previous certificate")
		} else {
			params.Replaces = replaces
		}
	}

	payload, err := ac.CreateOrder(order.Identifiers, params)
	if err != nil && params.Replaces != "" {
		if prob, ok := resources.AsProblem(err); ok && prob.IsConflict() {
			m.log.Info("Order conflict with replaces hint, retrying once without it")
			params.Replaces = ""
			payload, err = ac.CreateOrder(order.Identifiers, params)
		}
	}
	if err != nil {
		m.log.WithError(err).Error("Unable to create order")
		return nil
	}

	order.URL = payload.ID
	order.Payload = payload

	if m.window > 0 {
		m.saveToCache(order, ac)
	}
	return order
}

// saveToCache persists the order payload under its fingerprint. Failures are
// logged, never fatal.
func (m *Manager) saveToCache(order *Order, ac ACMEClient) {
	key := CacheKey(order, ac.ActiveAccountID())
	raw, err := json.MarshalIndent(cachedOrder{
		URL:     order.URL,
		Payload: order.Payload,
	}, "", "  ")
	if err != nil {
		m.log.WithError(err).Warn("Unable to serialize order for cache")
		return
	}
	path := filepath.Join(m.ordersDir, key+orderSuffix)
	if err := storage.WriteFileAtomic(path, raw, 0600); err != nil {
		m.log.WithError(err).Warn("Unable to write order cache file")
	}
}

// deleteCacheFiles removes the order and key cache files for a fingerprint.
func (m *Manager) deleteCacheFiles(key string) {
	for _, suffix := range []string{orderSuffix, keysSuffix} {
		path := filepath.Join(m.ordersDir, key+suffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.WithError(err).WithField("path", path).Warn("Unable to delete cache file")
		}
	}
}

// DeleteStaleFiles sweeps every cache file older than the reuse window,
// independent of the specific fingerprint being looked up.
func (m *Manager) DeleteStaleFiles() {
	removed, err := storage.SweepOlderThan(m.ordersDir, m.now().Add(-m.window))
	if err != nil {
		m.log.WithError(err).Warn("Unable to sweep order cache")
		return
	}
	for _, path := range removed {
		m.log.WithField("path", path).Debug("Removed stale cache file")
	}
}

// ClearCache wipes the order cache directory unconditionally. This is an
// administrative operation, not part of the normal issuance flow.
func (m *Manager) ClearCache() error {
	entries, err := os.ReadDir(m.ordersDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.ordersDir, entry.Name())); err != nil {
			return err
		}
	}
	m.log.Info("Order cache cleared")
	return nil
}
