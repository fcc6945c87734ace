// Package client provides the ACME v2 protocol engine: a client wrapping
// directory, account and transport state with uniform retry semantics and the
// order/challenge polling state machines.
package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	acmenet "github.com/simple-acme/simple-acme-sub001/net"
	"github.com/simple-acme/simple-acme-sub001/retry"
)

// Client allows interaction with an ACME server. A Client is bound to one
// directory and authenticates requests with its ActiveAccount. All network
// operations run through a bounded retry policy; polling operations
// additionally use a fixed-delay poll loop with a hard attempt cap.
type Client struct {
	// A parsed *url.URL pointer for the ACME server's directory URL.
	DirectoryURL *url.URL
	// The server's capability description, fetched once and cached.
	Directory *resources.Directory
	// A pointer to the Account used for authenticating ACME requests with
	// JSON Web Signatures (JWS).
	ActiveAccount *accounts.Account
	// Use POST-as-GET requests instead of GET for resource fetches.
	PostAsGet bool

	// Network retry policy for transient failures.
	Retry retry.Policy
	// Polling bounds for the order/challenge status loops: attempt cap and
	// fixed delay between attempts.
	PollAttempts int
	PollInterval time.Duration

	// the net object is used to make HTTP GET/POST/HEAD requests to the ACME
	// server.
	net *acmenet.ACMENet
	// nonce is the value of the last-seen Replay-Nonce header from the ACME
	// server's HTTP responses. It will be used for the next signing
	// operation.
	nonce string

	log *logrus.Logger
	// sleep is swapped out in tests to observe polling delays.
	sleep func(time.Duration)
}

// ClientConfig contains configuration options provided to NewClient.
type ClientConfig struct {
	// A fully qualified URL for the ACME server's directory resource. Must
	// include an HTTP/HTTPS protocol prefix.
	DirectoryURL string
	// If true then GET requests to Orders, Authorizations, Challenges and
	// Certificates will be made as POST-as-GET requests.
	POSTAsGET bool
	// Number of attempts for transient network failures and for the status
	// polling loops.
	RetryCount int
	// Fixed delay between attempts.
	RetryInterval time.Duration
	// Optional logger; the standard logger is used when nil.
	Logger *logrus.Logger
}

// normalize validates a ClientConfig and fills defaults.
func (conf *ClientConfig) normalize() error {
	conf.DirectoryURL = strings.TrimSpace(conf.DirectoryURL)

	if conf.DirectoryURL == "" {
		return fmt.Errorf("DirectoryURL must not be empty")
	}
	if _, err := url.Parse(conf.DirectoryURL); err != nil {
		return fmt.Errorf("DirectoryURL invalid: %s", err.Error())
	}

	if conf.RetryCount < 1 {
		conf.RetryCount = 1
	}
	if conf.Logger == nil {
		conf.Logger = logrus.StandardLogger()
	}
	return nil
}

// NewClient creates a Client from the given ClientConfig, transport and
// directory. The directory must already have been fetched (and possibly
// probed for) by the caller; see the clients package for discovery.
func NewClient(config ClientConfig, net *acmenet.ACMENet, directory *resources.Directory) (*Client, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	if net == nil {
		return nil, fmt.Errorf("net must not be nil")
	}
	if !directory.Valid() {
		return nil, fmt.Errorf("directory is missing required endpoints")
	}

	// Safe to discard the error, normalize parsed the URL above.
	dirURL, _ := url.Parse(config.DirectoryURL)

	return &Client{
		DirectoryURL: dirURL,
		Directory:    directory,
		PostAsGet:    config.POSTAsGET,
		Retry: retry.Policy{
			Attempts: config.RetryCount,
			Interval: config.RetryInterval,
		},
		PollAttempts: config.RetryCount,
		PollInterval: config.RetryInterval,
		net:          net,
		log:          config.Logger,
		sleep:        time.Sleep,
	}, nil
}

// ActiveAccountID returns the ID of the ActiveAccount. If the ActiveAccount
// is nil or has not yet been created with the ACME server an empty string is
// returned.
func (c *Client) ActiveAccountID() string {
	return c.ActiveAccount.ID()
}
