package freebox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultBootstrapURL is reachable only from the router's own LAN.
const DefaultBootstrapURL = "http://mafreebox.freebox.fr/api_version"

// EndpointDescriptor is what discovery learns about the router API.
type EndpointDescriptor struct {
	APIDomain       string
	HTTPSPort       uint16
	APIBasePath     string
	APIMajorVersion uint

	// Informational fields, not used to build the base URL.
	UID            string
	DeviceName     string
	DeviceType     string
	APIVersion     string
	HTTPSAvailable bool
}

// Discoverer resolves the router API endpoint from the bootstrap address.
// It caches nothing.
type Discoverer struct {
	bootstrapURL string
	httpClient   *http.Client
}

// NewDiscoverer returns a Discoverer. An empty bootstrapURL selects DefaultBootstrapURL.
func NewDiscoverer(bootstrapURL string, httpClient *http.Client) *Discoverer {
	if bootstrapURL == "" {
		bootstrapURL = DefaultBootstrapURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Discoverer{bootstrapURL: bootstrapURL, httpClient: httpClient}
}

// Discover fetches the self-description document and extracts the endpoint.
func (d *Discoverer) Discover(ctx context.Context) (*EndpointDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.bootstrapURL, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: d.bootstrapURL, Err: err}
	}
	res, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: d.bootstrapURL, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &DiscoveryError{URL: d.bootstrapURL, Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	var doc APIVersion
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodySize)).Decode(&doc); err != nil {
		return nil, &DiscoveryError{URL: d.bootstrapURL, Err: fmt.Errorf("failed to decode api_version: %w", err)}
	}
	if doc.APIDomain == "" || doc.APIBaseURL == "" {
		return nil, &DiscoveryError{URL: d.bootstrapURL, Err: fmt.Errorf("api_version document is missing api_domain or api_base_url")}
	}

	major, err := MajorVersion(doc.APIVersion)
	if err != nil {
		return nil, err
	}

	return &EndpointDescriptor{
		APIDomain:       doc.APIDomain,
		HTTPSPort:       doc.HTTPSPort,
		APIBasePath:     doc.APIBaseURL,
		APIMajorVersion: major,
		UID:             doc.UID,
		DeviceName:      doc.DeviceName,
		DeviceType:      doc.DeviceType,
		APIVersion:      doc.APIVersion,
		HTTPSAvailable:  doc.HTTPSAvailable,
	}, nil
}

// MajorVersion returns the component before the first '.', e.g. "8.0.1" -> 8.
func MajorVersion(version string) (uint, error) {
	head, _, found := strings.Cut(version, ".")
	if !found || head == "" {
		return 0, &InvalidVersionError{Version: version}
	}
	major, err := strconv.ParseUint(head, 10, 32)
	if err != nil {
		return 0, &InvalidVersionError{Version: version}
	}
	return uint(major), nil
}

// DeriveBaseURL builds https://{domain}:{port}{base}v{major}/.
func DeriveBaseURL(desc *EndpointDescriptor) string {
	return fmt.Sprintf("https://%s:%d%sv%d/", desc.APIDomain, desc.HTTPSPort, desc.APIBasePath, desc.APIMajorVersion)
}

// CheckCompatibility reports whether the advertised API version satisfies
// constraint (for example ">= 4.0").
func CheckCompatibility(desc *EndpointDescriptor, constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid api version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(desc.APIVersion)
	if err != nil {
		return false, fmt.Errorf("api version %q is not a semantic version: %w", desc.APIVersion, err)
	}
	return c.Check(v), nil
}
