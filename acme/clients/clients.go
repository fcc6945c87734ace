// Package clients constructs and caches configured ACME clients: it discovers
// the server's directory, loads or registers the backing account (including
// terms-of-service acceptance and external account binding) and hands out
// ready-to-use clients keyed by account name.
package clients

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/client"
	"github.com/simple-acme/simple-acme-sub001/acme/keys"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	"github.com/simple-acme/simple-acme-sub001/config"
	acmenet "github.com/simple-acme/simple-acme-sub001/net"
)

// Prompter asks the operator a yes/no question. Registration needs one for
// terms-of-service acceptance when it is not pre-approved in the settings.
type Prompter interface {
	Confirm(message string) bool
}

// AutoConfirm answers yes to every question. Used for non-interactive runs.
type AutoConfirm struct{}

// Confirm implements Prompter.
func (AutoConfirm) Confirm(string) bool { return true }

// Manager builds authorized ACME clients on demand and memoizes them per
// account name. It owns directory discovery and first-time account setup.
//
// Manager is not safe for concurrent use; the engine drives issuance from a
// single goroutine.
type Manager struct {
	settings *config.Settings
	store    *accounts.Manager
	net      *acmenet.ACMENet
	prompt   Prompter
	log      *logrus.Logger

	directoryURL string
	directory    *resources.Directory
	clients      map[string]*client.Client
}

// NewManager creates a Manager. A nil prompt defaults to AutoConfirm and a
// nil log to the standard logger.
func NewManager(settings *config.Settings, store *accounts.Manager, net *acmenet.ACMENet, prompt Prompter, log *logrus.Logger) (*Manager, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("account store must not be nil")
	}
	if net == nil {
		return nil, fmt.Errorf("net must not be nil")
	}
	if prompt == nil {
		prompt = AutoConfirm{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		settings: settings,
		store:    store,
		net:      net,
		prompt:   prompt,
		log:      log,
		clients:  map[string]*client.Client{},
	}, nil
}

// directoryCandidates returns the URLs to try when locating the directory
// resource for a base URI. A URI that already names a directory is used as
// is. Otherwise both the literal URI and the conventional "/directory"
// suffix are tried; hosts that look like provider API roots favor the
// suffixed form first.
func directoryCandidates(baseURI string) []string {
	trimmed := strings.TrimRight(baseURI, "/")
	if strings.Contains(strings.ToLower(baseURI), "directory") {
		return []string{trimmed}
	}

	suffixed := trimmed + "/directory"
	if parsed, err := url.Parse(baseURI); err == nil {
		for _, label := range strings.Split(strings.ToLower(parsed.Hostname()), ".") {
			if label == "api" {
				return []string{suffixed, trimmed}
			}
		}
	}
	return []string{trimmed, suffixed}
}

// fetchDirectory GETs and parses a candidate directory URL. An HTTP error, a
// JSON parse failure or a directory missing required endpoints all fail the
// candidate.
func (m *Manager) fetchDirectory(dirURL string) (*resources.Directory, error) {
	resp, err := m.net.GetURL(dirURL)
	if err != nil {
		return nil, err
	}
	if resp.Response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory %q returned status code %d",
			dirURL, resp.Response.StatusCode)
	}

	directory := &resources.Directory{}
	if err := json.Unmarshal(resp.RespBody, directory); err != nil {
		return nil, fmt.Errorf("directory %q returned invalid JSON: %s", dirURL, err)
	}
	if !directory.Valid() {
		return nil, fmt.Errorf("directory %q is missing required endpoints", dirURL)
	}
	return directory, nil
}

// discoverDirectory probes the configured base URI for a directory resource
// and caches the result for the manager's lifetime.
func (m *Manager) discoverDirectory() error {
	if m.directory != nil {
		return nil
	}

	var lastErr error
	for _, candidate := range directoryCandidates(m.settings.BaseURI) {
		directory, err := m.fetchDirectory(candidate)
		if err != nil {
			m.log.WithError(err).WithField("url", candidate).
				Debug("Directory candidate failed")
			lastErr = err
			continue
		}
		m.log.WithField("url", candidate).Info("Found ACME directory")
		m.directoryURL = candidate
		m.directory = directory
		return nil
	}
	return fmt.Errorf("no usable ACME directory at %q: %w", m.settings.BaseURI, lastErr)
}

// CreateAnonymousClient returns a client bound to the discovered directory
// but without an account. Suitable for unauthenticated operations like
// reading the terms of service.
func (m *Manager) CreateAnonymousClient() (*client.Client, error) {
	if err := m.discoverDirectory(); err != nil {
		return nil, err
	}
	return client.NewClient(client.ClientConfig{
		DirectoryURL:  m.directoryURL,
		POSTAsGET:     m.settings.PostAsGet,
		RetryCount:    m.settings.RetryCount,
		RetryInterval: m.settings.RetryInterval(),
		Logger:        m.log,
	}, m.net, m.directory)
}

// GetClient returns the authorized client for the named account, building
// and memoizing it on first use.
func (m *Manager) GetClient(name string) (*client.Client, error) {
	if existing, ok := m.clients[name]; ok {
		return existing, nil
	}
	built, err := m.CreateAuthorizedClient(name)
	if err != nil {
		return nil, err
	}
	m.clients[name] = built
	return built, nil
}

// CreateAuthorizedClient builds a client with an active account: a stored
// account is loaded when present, otherwise a fresh one is registered with
// the ACME server and persisted.
func (m *Manager) CreateAuthorizedClient(name string) (*client.Client, error) {
	ac, err := m.CreateAnonymousClient()
	if err != nil {
		return nil, err
	}

	account, err := m.store.LoadAccount(name)
	if err != nil {
		return nil, err
	}
	if account != nil {
		if account.Details != nil && account.Details.Status == acme.StatusDeactivated {
			// A deactivated account can never authenticate again; treat it
			// as absent and register a replacement.
			m.log.WithField("account", name).
				Warn("Stored account is deactivated, registering a new one")
			account = nil
		} else {
			ac.ActiveAccount = account
			return ac, nil
		}
	}

	if err := m.SetupAccount(ac, name); err != nil {
		return nil, err
	}
	return ac, nil
}

// SetupAccount registers a fresh account on the given client and persists it
// under the given name. The flow is terms-of-service acceptance, external
// account binding determination, account creation (retrying once with an
// RS256 key when the server rejects the signature algorithm) and storage.
func (m *Manager) SetupAccount(ac *client.Client, name string) error {
	if err := m.acceptTerms(ac); err != nil {
		return err
	}

	var contacts []string
	if m.settings.ContactEmail != "" {
		contacts = append(contacts, "mailto:"+m.settings.ContactEmail)
	}

	eab, err := m.externalAccountBinding(ac)
	if err != nil {
		return err
	}

	account, err := m.store.NewAccount("")
	if err != nil {
		return err
	}

	if err := m.createAccount(ac, account, contacts, eab); err != nil {
		prob, ok := resources.AsProblem(err)
		if !ok || !prob.IsType(acme.ProblemBadSignatureAlg) {
			return err
		}

		m.log.Warn("Server rejected the account key algorithm, retrying with RS256")
		account, err = m.store.NewAccount(keys.RS256)
		if err != nil {
			return err
		}
		if err := m.createAccount(ac, account, contacts, eab); err != nil {
			return err
		}
	}

	return m.store.StoreAccount(account, name)
}

// createAccount signs the external account binding for the candidate signer
// and performs the newAccount call. The binding must be re-signed per
// attempt because its payload embeds the account public key.
func (m *Manager) createAccount(ac *client.Client, account *accounts.Account, contacts []string, eab *client.ExternalAccountBinding) error {
	var eabJWS json.RawMessage
	if eab != nil {
		signed, err := eab.Sign(account.Signer, ac.Directory.NewAccount)
		if err != nil {
			return fmt.Errorf("signing external account binding: %w", err)
		}
		eabJWS = signed
	}
	return ac.CreateAccount(account, contacts, true, eabJWS)
}

// acceptTerms enforces terms-of-service acceptance: pre-approved via the
// settings, otherwise put to the operator. Refusal aborts registration.
func (m *Manager) acceptTerms(ac *client.Client) error {
	terms := ac.Directory.TermsOfService()
	if terms == "" || m.settings.AcceptTermsOfService {
		return nil
	}
	if !m.prompt.Confirm(fmt.Sprintf("Do you agree with the terms of service at %s?", terms)) {
		return fmt.Errorf("terms of service at %s were not accepted", terms)
	}
	return nil
}

// externalAccountBinding determines whether registration needs an external
// account binding and from where to obtain the credential. Priority:
// explicitly configured key identifier and key, then self-service ZeroSSL
// acquisition (access key before email). A directory that requires a binding
// without any credential source available is a fatal configuration error.
func (m *Manager) externalAccountBinding(ac *client.Client) (*client.ExternalAccountBinding, error) {
	if m.settings.EabKeyIdentifier != "" {
		key, err := decodeEabKey(m.settings.EabKey)
		if err != nil {
			return nil, fmt.Errorf("decoding configured external account binding key: %w", err)
		}
		return &client.ExternalAccountBinding{
			Algorithm:     m.settings.EabAlgorithm,
			KeyIdentifier: m.settings.EabKeyIdentifier,
			Key:           key,
		}, nil
	}

	if isZeroSSL(ac.DirectoryURL.Hostname()) {
		switch {
		case m.settings.ZeroSSLAccessKey != "":
			return m.zeroSSLEabForAccessKey(m.settings.ZeroSSLAccessKey)
		case m.settings.ContactEmail != "":
			return m.zeroSSLEabForEmail(m.settings.ContactEmail)
		}
	}

	if ac.Directory.ExternalAccountRequired() {
		return nil, fmt.Errorf(
			"server at %q requires an external account binding but none is configured",
			ac.DirectoryURL)
	}
	return nil, nil
}

// decodeEabKey decodes a provider-issued HMAC key from its base64url form,
// tolerating padded input.
func decodeEabKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("key must not be empty")
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
}

// ChangeContacts updates the named account's contact addresses to the
// configured contact email and persists the refreshed details.
func (m *Manager) ChangeContacts(name string) error {
	ac, err := m.GetClient(name)
	if err != nil {
		return err
	}

	var contacts []string
	if m.settings.ContactEmail != "" {
		contacts = append(contacts, "mailto:"+m.settings.ContactEmail)
	}
	if err := ac.UpdateContacts(contacts); err != nil {
		return err
	}
	return m.store.StoreAccount(ac.ActiveAccount, name)
}
