package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

// DefaultGoogleBaseURL is the Google Maps web service root.
const DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"

const maxResponseBytes = 4 << 20

// GoogleClient talks to the Google Directions and Geocoding web services.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGoogleClient creates a GoogleClient. An empty baseURL selects DefaultGoogleBaseURL.
func NewGoogleClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type valueField struct {
	Value int `json:"value"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Duration      valueField `json:"duration"`
			Distance      valueField `json:"distance"`
			StartLocation latLng     `json:"start_location"`
			EndLocation   latLng     `json:"end_location"`
			Steps         []struct {
				Polyline struct {
					Points string `json:"points"`
				} `json:"polyline"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Route requests a driving route through waypoints in the given order. The
// first and last waypoints are origin and destination; interior waypoints are
// passed as stopovers without the optimize flag, so their order is kept.
func (c *GoogleClient) Route(ctx context.Context, waypoints []route.Waypoint) (*route.Geometry, error) {
	if len(waypoints) < 2 {
		return nil, domain.NewInsufficientWaypointsError(len(waypoints))
	}

	q := url.Values{}
	q.Set("origin", formatLatLng(waypoints[0]))
	q.Set("destination", formatLatLng(waypoints[len(waypoints)-1]))
	if stops := waypoints[1 : len(waypoints)-1]; len(stops) > 0 {
		parts := make([]string, len(stops))
		for i, wp := range stops {
			parts[i] = formatLatLng(wp)
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}
	q.Set("mode", "driving")
	q.Set("key", c.apiKey)

	var resp directionsResponse
	if err := c.get(ctx, "directions", "/directions/json", q, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "OK" {
		c.logger.Warn("directions request rejected",
			zap.String("status", resp.Status),
			zap.String("error_message", resp.ErrorMessage),
		)
		return nil, domain.NewRouteNotFoundError(resp.Status)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, domain.NewRouteNotFoundError("empty route list")
	}

	apiLegs := resp.Routes[0].Legs
	legs := make([]route.Leg, 0, len(apiLegs))
	for _, l := range apiLegs {
		leg := route.Leg{
			DurationSeconds: l.Duration.Value,
			DistanceMeters:  l.Distance.Value,
		}
		for _, step := range l.Steps {
			coords, _, err := polyline.DecodeCoords([]byte(step.Polyline.Points))
			if err != nil {
				return nil, domain.NewProviderUnavailableError("directions", fmt.Errorf("decode polyline: %w", err))
			}
			for _, pt := range coords {
				leg.Points = append(leg.Points, route.Waypoint{Lat: pt[0], Lng: pt[1]})
			}
		}
		if len(leg.Points) == 0 {
			leg.Points = []route.Waypoint{
				{Lat: l.StartLocation.Lat, Lng: l.StartLocation.Lng},
				{Lat: l.EndLocation.Lat, Lng: l.EndLocation.Lng},
			}
		}
		legs = append(legs, leg)
	}

	geom := route.GeometryFromLegs(legs)
	c.logger.Debug("route computed",
		zap.Int("waypoints", len(waypoints)),
		zap.Int("legs", len(legs)),
		zap.Int("distance_m", geom.DistanceMeters),
		zap.Int("duration_s", geom.TravelTimeSeconds),
	)
	return geom, nil
}

// Geocode resolves query to the first matching location.
func (c *GoogleClient) Geocode(ctx context.Context, query string) (route.Waypoint, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return route.Waypoint{}, domain.NewValidationError("query is required")
	}

	q := url.Values{}
	q.Set("address", query)
	q.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.get(ctx, "geocoding", "/geocode/json", q, &resp); err != nil {
		return route.Waypoint{}, err
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		if resp.Status != "ZERO_RESULTS" && resp.Status != "OK" {
			c.logger.Warn("geocode request rejected",
				zap.String("status", resp.Status),
				zap.String("error_message", resp.ErrorMessage),
			)
		}
		return route.Waypoint{}, domain.NewGeocodeNotFoundError(query)
	}

	loc := resp.Results[0].Geometry.Location
	return route.Waypoint{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (c *GoogleClient) get(ctx context.Context, provider, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", provider, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewProviderUnavailableError(provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderUnavailableError(provider, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewProviderUnavailableError(provider, fmt.Errorf("read body: %w", err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewProviderUnavailableError(provider, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func formatLatLng(p route.Waypoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
