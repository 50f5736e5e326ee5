package maps

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

func TestDrivingDistanceKmRequest(t *testing.T) {
	respBody := `{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":3450}}]}]}`

	var capturedPath string
	var capturedQuery map[string]string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		capturedQuery = map[string]string{
			"origins":      req.URL.Query().Get("origins"),
			"destinations": req.URL.Query().Get("destinations"),
			"key":          req.URL.Query().Get("key"),
			"mode":         req.URL.Query().Get("mode"),
		}
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt)
	km, err := client.DrivingDistanceKm(context.Background(),
		types.GeographyPoint{Lat: 0, Lng: 0},
		types.GeographyPoint{Lat: 0, Lng: 0.03},
	)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if km != 3.45 {
		t.Fatalf("expected 3.45km, got %v", km)
	}
	if capturedPath != "/maps/api/distancematrix/json" {
		t.Fatalf("unexpected path %q", capturedPath)
	}
	if capturedQuery["origins"] != "0.000000,0.000000" || capturedQuery["destinations"] != "0.000000,0.030000" {
		t.Fatalf("unexpected points %+v", capturedQuery)
	}
	if capturedQuery["key"] != "test-key" || capturedQuery["mode"] != "driving" {
		t.Fatalf("unexpected query %+v", capturedQuery)
	}
}

func TestDrivingDistanceKmNonOKStatus(t *testing.T) {
	cases := map[string]string{
		"top level":  `{"status":"OVER_QUERY_LIMIT","rows":[]}`,
		"element":    `{"status":"OK","rows":[{"elements":[{"status":"ZERO_RESULTS"}]}]}`,
		"no element": `{"status":"OK","rows":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, body), nil
			}))
			_, err := client.DrivingDistanceKm(context.Background(), types.GeographyPoint{}, types.GeographyPoint{Lat: 1})
			if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				t.Fatalf("expected dependency error, got %v", err)
			}
		})
	}
}

func TestDrivingDistanceKmHTTPFailure(t *testing.T) {
	client := newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, "upstream exploded"), nil
	}))
	_, err := client.DrivingDistanceKm(context.Background(), types.GeographyPoint{}, types.GeographyPoint{Lat: 1})
	if err == nil || !strings.Contains(err.Error(), "distance matrix request failed") {
		t.Fatalf("unexpected error %v", err)
	}

	client = newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: timeout")
	}))
	if _, err := client.DrivingDistanceKm(context.Background(), types.GeographyPoint{}, types.GeographyPoint{Lat: 1}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestReverseGeocode(t *testing.T) {
	respBody := `{"status":"OK","results":[{"place_id":"abc","formatted_address":"1 Main St","address_components":[{"long_name":"100001","types":["postal_code"]}]}]}`
	var capturedLatLng string
	client := newTestClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedLatLng = req.URL.Query().Get("latlng")
		return jsonResponse(http.StatusOK, respBody), nil
	}))

	addr, err := client.ReverseGeocode(context.Background(), types.GeographyPoint{Lat: 1.5, Lng: -2.25})
	if err != nil {
		t.Fatalf("reverse geocode: %v", err)
	}
	if capturedLatLng != "1.500000,-2.250000" {
		t.Fatalf("unexpected latlng %q", capturedLatLng)
	}
	if addr.FormattedAddress != "1 Main St" || addr.PostalCode != "100001" || addr.PlaceID != "abc" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestReverseGeocodeZeroResults(t *testing.T) {
	client := newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`), nil
	}))
	_, err := client.ReverseGeocode(context.Background(), types.GeographyPoint{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("test-key", WithBaseURL("http://maps.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
