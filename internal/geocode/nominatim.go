// Package geocode resolves coordinates to addresses through a Nominatim
// compatible reverse geocoding endpoint.
package geocode

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"sdwan-sites/internal/metrics"
	"sdwan-sites/pkg/models"
)

const (
	DefaultEndpoint  = "https://nominatim.openstreetmap.org/reverse"
	DefaultUserAgent = "SD-WAN-Location-Mapper/1.0"
	DefaultTimeout   = 10 * time.Second
	DefaultDelay     = time.Second
)

// Fallback values used when the service omits a field.
const (
	UnknownLocation = "Unknown Location"
	UnknownCity     = "Unknown City"
	UnknownState    = "Unknown State"
	UnknownCountry  = "Unknown Country"
)

type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
	// Delay is slept after every request to stay within the service usage policy.
	Delay time.Duration
}

// Client is a caching reverse geocoder. It is not safe for concurrent use.
type Client struct {
	HTTP    *resty.Client
	Config  Config
	log     zerolog.Logger
	metrics *metrics.GeocodeMetrics
	sleep   func(time.Duration)
	cache   map[string]models.GeoLocation
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.GeocodeMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSleep replaces time.Sleep for the post-request throttle.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}

	r := resty.New()
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("User-Agent", cfg.UserAgent)
	r.SetHeader("Accept", "application/json")

	c := &Client{
		HTTP:   r,
		Config: cfg,
		log:    zerolog.Nop(),
		sleep:  time.Sleep,
		cache:  make(map[string]models.GeoLocation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimResponse is the subset of the /reverse answer we read.
type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse returns the address for a coordinate pair. It never fails: when the
// service cannot be used it returns Fallback(lat, lon), which is not cached.
func (c *Client) Reverse(lat, lon float64) models.GeoLocation {
	key := cacheKey(lat, lon)
	if geo, ok := c.cache[key]; ok {
		c.metrics.ObserveCacheHit()
		return geo
	}

	geo, err := c.lookup(lat, lon)
	if err != nil {
		c.metrics.ObserveRequest(metrics.ResultError)
		c.log.Warn().
			Float64("latitude", lat).
			Float64("longitude", lon).
			Err(err).
			Msg("Geocoding failed")
		return Fallback(lat, lon)
	}

	c.metrics.ObserveRequest(metrics.ResultSuccess)
	c.cache[key] = geo
	return geo
}

// CacheLen reports how many coordinate pairs have been resolved.
func (c *Client) CacheLen() int {
	return len(c.cache)
}

func (c *Client) lookup(lat, lon float64) (models.GeoLocation, error) {
	resp, err := c.HTTP.R().
		SetQueryParams(map[string]string{
			"lat":            models.FormatCoord(lat),
			"lon":            models.FormatCoord(lon),
			"format":         "json",
			"addressdetails": "1",
		}).
		Get(c.Config.Endpoint)
	c.sleep(c.Config.Delay)

	if err != nil {
		return models.GeoLocation{}, err
	}

	if resp.StatusCode() != http.StatusOK {
		return models.GeoLocation{}, fmt.Errorf("geocoding service returned %s", resp.Status())
	}

	var data nominatimResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return models.GeoLocation{}, fmt.Errorf("decode geocoding response: %w", err)
	}

	return fromAddress(data.DisplayName, data.Address), nil
}

func fromAddress(displayName string, address map[string]string) models.GeoLocation {
	return models.GeoLocation{
		DisplayName:      orDefault(displayName, UnknownLocation),
		City:             orDefault(city(address), UnknownCity),
		State:            orDefault(state(address), UnknownState),
		Country:          orDefault(address["country"], UnknownCountry),
		CountryCode:      strings.ToUpper(address["country_code"]),
		Postcode:         address["postcode"],
		FormattedAddress: FormatAddress(address),
	}
}

// FormatAddress joins the city, state and country present in address.
func FormatAddress(address map[string]string) string {
	var parts []string
	if v := city(address); v != "" {
		parts = append(parts, v)
	}
	if v := state(address); v != "" {
		parts = append(parts, v)
	}
	if v := address["country"]; v != "" {
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return UnknownLocation
	}
	return strings.Join(parts, ", ")
}

// Fallback builds a placeholder location from the raw coordinates.
func Fallback(lat, lon float64) models.GeoLocation {
	coords := models.FormatCoord(lat) + ", " + models.FormatCoord(lon)
	return models.GeoLocation{
		DisplayName:      "Location at " + coords,
		City:             UnknownCity,
		State:            UnknownState,
		Country:          UnknownCountry,
		CountryCode:      "",
		Postcode:         "",
		FormattedAddress: coords,
	}
}

func city(address map[string]string) string {
	return firstNonEmpty(address["city"], address["town"], address["village"], address["hamlet"])
}

func state(address map[string]string) string {
	return firstNonEmpty(address["state"], address["province"])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func cacheKey(lat, lon float64) string {
	return models.FormatCoord(lat) + "," + models.FormatCoord(lon)
}
