// Package geocode resolves event addresses to map coordinates using the
// Google Geocoding API and builds the summary page map.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gooze-fr/event-planner/internal/model"
)

// DefaultBaseURL is the Google Maps API root.
const DefaultBaseURL = "https://maps.googleapis.com"

// ErrUnavailable wraps every lookup failure: missing key, transport
// errors, non-OK responses and empty results. Callers keep their previous
// map centre when they see it.
var ErrUnavailable = errors.New("geocoding unavailable")

// Client looks up addresses.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

// NewClient constructs a Client. The key is sent as-is.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     log.With().Str("component", "geocode").Logger(),
	}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location model.LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Lookup returns the best match for address.
func (c *Client) Lookup(ctx context.Context, address string) (model.LatLng, error) {
	if !c.Enabled() {
		return model.LatLng{}, fmt.Errorf("%w: api key is not configured", ErrUnavailable)
	}
	if strings.TrimSpace(address) == "" {
		return model.LatLng{}, fmt.Errorf("%w: empty address", ErrUnavailable)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/maps/api/geocode/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.LatLng{}, fmt.Errorf("%w: unexpected HTTP status %d", ErrUnavailable, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.LatLng{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return model.LatLng{}, fmt.Errorf("%w: status %s %s", ErrUnavailable, body.Status, body.ErrorMessage)
	}

	loc := body.Results[0].Geometry.Location
	c.log.Debug().
		Str("formatted_address", body.Results[0].FormattedAddress).
		Float64("lat", loc.Lat).
		Float64("lng", loc.Lng).
		Dur("took", time.Since(start)).
		Msg("geocode lookup succeeded")
	return loc, nil
}

// Center is the current map centre. Overlapping updates are last write
// wins; failed lookups never replace it.
type Center struct {
	mu  sync.RWMutex
	pos model.LatLng
}

// NewCenter returns a Center starting at def.
func NewCenter(def model.LatLng) *Center {
	return &Center{pos: def}
}

// Get returns the current centre.
func (c *Center) Get() model.LatLng {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

// Set replaces the centre.
func (c *Center) Set(pos model.LatLng) {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
}

// Resolve looks up address and moves center on success. Errors are logged
// and returned; center is left untouched.
func (c *Client) Resolve(ctx context.Context, center *Center, address string) error {
	pos, err := c.Lookup(ctx, address)
	if err != nil {
		c.log.Warn().Err(err).Str("address", address).Msg("geocode lookup failed, keeping map centre")
		return err
	}
	center.Set(pos)
	return nil
}

// StaticMapURL renders a map image centred on pos with a single marker.
// It returns "" when no key is configured so the page omits the map.
func StaticMapURL(baseURL, apiKey string, pos model.LatLng, zoom int) string {
	if apiKey == "" {
		return ""
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	coord := strconv.FormatFloat(pos.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(pos.Lng, 'f', -1, 64)

	q := url.Values{}
	q.Set("center", coord)
	q.Set("zoom", strconv.Itoa(zoom))
	q.Set("size", "640x320")
	q.Set("markers", coord)
	q.Set("key", apiKey)
	return strings.TrimRight(baseURL, "/") + "/maps/api/staticmap?" + q.Encode()
}
