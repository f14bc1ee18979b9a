package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sdwan-sites/internal/client"
	"sdwan-sites/internal/config"
	"sdwan-sites/internal/geocode"
	"sdwan-sites/internal/metrics"
	"sdwan-sites/internal/sites"
)

// New wires the controller client, geocoder and aggregator from settings.
// Geocode counters are registered on reg when it is not nil.
func New(s config.Settings, log zerolog.Logger, reg prometheus.Registerer) *Pipeline {
	api := client.New(client.ClientConfig{
		BaseURL:  s.BaseURL,
		Username: s.Username,
		Password: s.Password,
		Insecure: s.Insecure,
		Timeout:  s.RequestTimeout,
	})

	geo := geocode.New(geocode.Config{
		Endpoint:  s.GeocodeURL,
		UserAgent: s.UserAgent,
		Timeout:   s.GeocodeTimeout,
		Delay:     s.GeocodeDelay,
	},
		geocode.WithLogger(log.With().Str("component", "geocode").Logger()),
		geocode.WithMetrics(metrics.NewGeocodeMetrics(reg)),
	)

	return &Pipeline{
		Controller: api,
		Aggregator: sites.NewAggregator(geo, log.With().Str("component", "sites").Logger()),
		Log:        log,
	}
}
