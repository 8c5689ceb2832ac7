// Package routing adapts external routing and geocoding providers to the
// route.Router and route.Geocoder contracts.
package routing

import (
	"time"

	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain/route"
)

const (
	ProviderGoogle       = "google"
	ProviderStraightLine = "straightline"
)

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	SpeedKPH float64
}

// New returns the router and geocoder for opts. The Google provider is used
// only when an API key is present; otherwise routing falls back to straight
// lines and geocoding is unavailable.
func New(opts Options, logger *zap.Logger) (route.Router, route.Geocoder) {
	if opts.Provider == ProviderGoogle && opts.APIKey != "" {
		c := NewGoogleClient(opts.APIKey, opts.BaseURL, opts.Timeout, logger)
		return c, c
	}

	if opts.Provider == ProviderGoogle {
		logger.Warn("routing API key not configured, using straight-line routing")
	}
	return NewStraightLineRouter(opts.SpeedKPH), UnavailableGeocoder{}
}
