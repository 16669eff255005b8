package freebox

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/pkg/identity"
)

// DefaultMinAPIVersion is the oldest router API the resource calls are known to work with.
const DefaultMinAPIVersion = ">= 4.0"

// TokenStore persists the long-lived app token between runs.
type TokenStore interface {
	// Token returns the app token persisted for appID, if a usable one exists.
	// A token saved under another app id is never returned.
	Token(appID string) (string, bool)
	// Save durably writes the identity and its token. Failures are *PersistError.
	Save(id *identity.Identity, token string) error
}

// Options configure NewClient.
type Options struct {
	Identity *identity.Identity
	Store    TokenStore

	// HTTPClient talks to the router API over TLS. BootstrapClient is used
	// for plaintext discovery and defaults to HTTPClient.
	HTTPClient      *http.Client
	BootstrapClient *http.Client
	BootstrapURL    string

	MinAPIVersion string
	SessionTTL    time.Duration
	Poll          PollPolicy

	Logger zerolog.Logger
}

// Client is an authenticated handle on one router. It is immutable once
// built and safe for concurrent use.
type Client struct {
	baseURL    string
	descriptor EndpointDescriptor
	identity   identity.Identity
	appToken   string
	httpClient *http.Client
	sessions   *SessionCache
	logger     zerolog.Logger
}

// NewClient discovers the router, obtains an app token (running the device
// authorization on first use and persisting its result), and returns a
// ready client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Identity == nil {
		return nil, errors.New("identity is required")
	}
	if opts.Store == nil {
		return nil, errors.New("token store is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	bootstrapClient := opts.BootstrapClient
	if bootstrapClient == nil {
		bootstrapClient = hc
	}
	logger := opts.Logger

	desc, err := NewDiscoverer(opts.BootstrapURL, bootstrapClient).Discover(ctx)
	if err != nil {
		return nil, err
	}
	baseURL := DeriveBaseURL(desc)
	logger.Info().
		Str("api_domain", desc.APIDomain).
		Str("api_version", desc.APIVersion).
		Str("device_type", desc.DeviceType).
		Msg("Router discovered")

	constraint := opts.MinAPIVersion
	if constraint == "" {
		constraint = DefaultMinAPIVersion
	}
	if ok, err := CheckCompatibility(desc, constraint); err != nil {
		logger.Warn().Err(err).Msg("Unable to check router API compatibility")
	} else if !ok {
		logger.Warn().Str("api_version", desc.APIVersion).Str("constraint", constraint).Msg("Router API is older than supported")
	}

	token, ok := opts.Store.Token(opts.Identity.AppID)
	if !ok {
		logger.Info().Str("app_id", opts.Identity.AppID).Msg("No app token found, starting authorization")
		token, err = NewAuthorizer(hc, opts.Poll, logger).Authorize(ctx, opts.Identity, baseURL)
		if err != nil {
			return nil, err
		}
		if err := opts.Store.Save(opts.Identity, token); err != nil {
			return nil, err
		}
		logger.Info().Str("app_id", opts.Identity.AppID).Msg("App token persisted")
	}

	return &Client{
		baseURL:    baseURL,
		descriptor: *desc,
		identity:   *opts.Identity,
		appToken:   token,
		httpClient: hc,
		sessions:   NewSessionCache(opts.SessionTTL),
		logger:     logger,
	}, nil
}

// BaseURL returns the derived API base URL, ending with a slash.
func (c *Client) BaseURL() string { return c.baseURL }

// APIDomain returns the router's API host name.
func (c *Client) APIDomain() string { return c.descriptor.APIDomain }

// Descriptor returns a copy of the endpoint learned at construction.
func (c *Client) Descriptor() EndpointDescriptor { return c.descriptor }

// AppID returns the identity the client authenticates as.
func (c *Client) AppID() string { return c.identity.AppID }
