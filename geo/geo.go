// Package geo resolves IP addresses to a coarse location using the
// ip-api.com JSON endpoint.
//
// Geolocation is best-effort decoration for validation results: callers
// treat every failure as "location unknown" and must never fail a request
// because of it.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrNotFound indicates the service has no location for the IP (private
// ranges, unallocated space).
var ErrNotFound = errors.New("geo: no location for ip")

// Location is a coarse geographic location of an IP address.
type Location struct {
	City    string
	Region  string
	Country string
	IP      string
}

// String returns the location in display form,
// e.g. "Mountain View, California, United States (IP: 142.250.27.27)".
func (l Location) String() string {
	return fmt.Sprintf("%s, %s, %s (IP: %s)", l.City, l.Region, l.Country, l.IP)
}

// Locator maps an IP address to a Location.
type Locator interface {
	Locate(ctx context.Context, ip net.IP) (Location, error)
}

// Config contains configuration for the ip-api.com client.
type Config struct {
	// BaseURL of the JSON endpoint. Default "http://ip-api.com/json".
	BaseURL string

	// HTTPClient to use. Default has a 5s timeout.
	HTTPClient *http.Client
}

// Client is a Locator backed by ip-api.com.
type Client struct {
	config Config
}

var _ Locator = (*Client)(nil)

// NewClient creates an ip-api.com client, applying defaults for unset
// fields.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://ip-api.com/json"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{config: config}
}

// apiResponse is the subset of the ip-api.com response we use.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	City    string `json:"city"`
	Region  string `json:"regionName"`
	Country string `json:"country"`
	IP      string `json:"query"`
}

// Locate queries ip-api.com for the location of ip.
func (c *Client) Locate(ctx context.Context, ip net.IP) (Location, error) {
	if ip == nil {
		return Location{}, errors.New("geo: nil IP address")
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, ip.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("geo: %w", err)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo: lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo: lookup returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("geo: decoding response: %w", err)
	}

	// ip-api reports failures (reserved ranges etc.) with HTTP 200 and
	// status "fail".
	if body.Status != "success" {
		return Location{}, fmt.Errorf("%w: %s", ErrNotFound, body.Message)
	}

	return Location{
		City:    body.City,
		Region:  body.Region,
		Country: body.Country,
		IP:      body.IP,
	}, nil
}

// Mock is a Locator for tests.
type Mock struct {
	// Locations maps IP strings to locations.
	Locations map[string]Location

	// Err, when set, is returned by every Locate call.
	Err error
}

var _ Locator = (*Mock)(nil)

// Locate returns the configured location for ip.
func (m *Mock) Locate(ctx context.Context, ip net.IP) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	if m.Err != nil {
		return Location{}, m.Err
	}
	loc, ok := m.Locations[ip.String()]
	if !ok {
		return Location{}, ErrNotFound
	}
	return loc, nil
}
