package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

const (
	defaultBaseURL             = "https://maps.googleapis.com"
	distanceMatrixPath         = "maps/api/distancematrix/json"
	geocodePath                = "maps/api/geocode/json"
	statusOK                   = "OK"
	requestBodyReadLimit int64 = 1024
	defaultTimeout             = 10 * time.Second
)

var (
	errAPIKeyRequired = errors.New("routing api key is required")
)

// Client wraps the Google Maps Distance Matrix and Geocoding APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every provider call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// NewClient builds the routing client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Address is the display-only result of a reverse geocode.
type Address struct {
	FormattedAddress string `json:"formattedAddress"`
	PostalCode       string `json:"postalCode,omitempty"`
	PlaceID          string `json:"placeId,omitempty"`
}

// DrivingDistanceKm returns the routed road distance between two points.
func (c *Client) DrivingDistanceKm(ctx context.Context, origin, destination types.GeographyPoint) (float64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}

	query := url.Values{}
	query.Set("origins", formatPoint(origin))
	query.Set("destinations", formatPoint(destination))
	query.Set("mode", "driving")
	query.Set("units", "metric")

	var apiResp struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := c.get(ctx, distanceMatrixPath, query, "distance matrix", &apiResp); err != nil {
		return 0, err
	}

	if apiResp.Status != statusOK {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("distance matrix status %s", apiResp.Status))
	}
	if len(apiResp.Rows) == 0 || len(apiResp.Rows[0].Elements) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "distance matrix returned no elements")
	}
	element := apiResp.Rows[0].Elements[0]
	if element.Status != statusOK {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("distance matrix element status %s", element.Status))
	}

	return element.Distance.Value / 1000, nil
}

// ReverseGeocode resolves a point to a human readable address.
func (c *Client) ReverseGeocode(ctx context.Context, point types.GeographyPoint) (*Address, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}

	query := url.Values{}
	query.Set("latlng", formatPoint(point))

	var apiResp struct {
		Status  string `json:"status"`
		Results []struct {
			PlaceID           string `json:"place_id"`
			FormattedAddress  string `json:"formatted_address"`
			AddressComponents []struct {
				LongName string   `json:"long_name"`
				Types    []string `json:"types"`
			} `json:"address_components"`
		} `json:"results"`
	}
	if err := c.get(ctx, geocodePath, query, "reverse geocode", &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status == "ZERO_RESULTS" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no address found for point")
	}
	if apiResp.Status != statusOK || len(apiResp.Results) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("reverse geocode status %s", apiResp.Status))
	}

	first := apiResp.Results[0]
	addr := &Address{
		FormattedAddress: first.FormattedAddress,
		PlaceID:          first.PlaceID,
	}
	for _, comp := range first.AddressComponents {
		for _, kind := range comp.Types {
			if kind == "postal_code" {
				addr.PostalCode = comp.LongName
			}
		}
	}
	return addr, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, op string, out any) error {
	query.Set("key", c.apiKey)
	endpoint := c.buildURL(path) + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+op+" request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func formatPoint(p types.GeographyPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
