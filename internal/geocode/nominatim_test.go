package geocode

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdwan-sites/internal/metrics"
)

const sanFrancisco = `{
	"display_name": "Market Street, San Francisco, California, 94103, United States",
	"address": {
		"road": "Market Street",
		"city": "San Francisco",
		"state": "California",
		"postcode": "94103",
		"country": "United States",
		"country_code": "us"
	}
}`

type fakeNominatim struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeNominatim(t *testing.T, status int, body string) *fakeNominatim {
	t.Helper()

	f := &fakeNominatim{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)

		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("addressdetails") != "1" || q.Get("lat") == "" || q.Get("lon") == "" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if r.UserAgent() != DefaultUserAgent {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.calls = append(s.calls, d)
}

func newTestClient(endpoint string, opts ...Option) (*Client, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts = append([]Option{WithSleep(rec.sleep)}, opts...)
	return New(Config{Endpoint: endpoint, Timeout: 2 * time.Second, Delay: DefaultDelay}, opts...), rec
}

func TestReverse_ParsesAddress(t *testing.T) {
	t.Parallel()

	srv := newFakeNominatim(t, http.StatusOK, sanFrancisco)
	c, rec := newTestClient(srv.URL)

	geo := c.Reverse(37.7749, -122.4194)

	assert.Equal(t, "San Francisco", geo.City)
	assert.Equal(t, "California", geo.State)
	assert.Equal(t, "United States", geo.Country)
	assert.Equal(t, "US", geo.CountryCode)
	assert.Equal(t, "94103", geo.Postcode)
	assert.Equal(t, "San Francisco, California, United States", geo.FormattedAddress)
	assert.Contains(t, geo.DisplayName, "Market Street")
	assert.Equal(t, []time.Duration{DefaultDelay}, rec.calls)
}

func TestReverse_CacheHitSkipsNetwork(t *testing.T) {
	t.Parallel()

	srv := newFakeNominatim(t, http.StatusOK, sanFrancisco)
	reg := prometheus.NewRegistry()
	m := metrics.NewGeocodeMetrics(reg)
	c, rec := newTestClient(srv.URL, WithMetrics(m))

	first := c.Reverse(37.7749, -122.4194)
	second := c.Reverse(37.7749, -122.4194)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, srv.calls.Load())
	assert.Len(t, rec.calls, 1)
	assert.Equal(t, 1, c.CacheLen())
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheHits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues(metrics.ResultSuccess)), 0)

	c.Reverse(40.7128, -74.006)
	assert.EqualValues(t, 2, srv.calls.Load())
}

func TestReverse_FailuresFallBackAndAreNotCached(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``},
		{name: "malformed json", status: http.StatusOK, body: `{"display_name": `},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newFakeNominatim(t, tt.status, tt.body)
			m := metrics.NewGeocodeMetrics(prometheus.NewRegistry())
			c, rec := newTestClient(srv.URL, WithMetrics(m))

			geo := c.Reverse(37.7749, -122.4194)
			assert.Equal(t, Fallback(37.7749, -122.4194), geo)

			c.Reverse(37.7749, -122.4194)
			assert.EqualValues(t, 2, srv.calls.Load(), "failed lookups must be retried")
			assert.Len(t, rec.calls, 2, "throttle applies regardless of outcome")
			assert.Equal(t, 0, c.CacheLen())
			assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues(metrics.ResultError)), 0)
		})
	}
}

func TestReverse_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	rec := &sleepRecorder{}
	c := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, WithSleep(rec.sleep))

	geo := c.Reverse(37.7749, -122.4194)

	assert.Equal(t, "37.7749, -122.4194", geo.FormattedAddress)
	assert.Equal(t, UnknownCity, geo.City)
	assert.Equal(t, "Location at 37.7749, -122.4194", geo.DisplayName)
	assert.Len(t, rec.calls, 1)
}

func TestFallback_WholeNumberCoordinates(t *testing.T) {
	t.Parallel()

	geo := Fallback(40, -74)
	assert.Equal(t, "40.0, -74.0", geo.FormattedAddress)
	assert.Equal(t, "Location at 40.0, -74.0", geo.DisplayName)
}

func TestFromAddress_FallbackChains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		address   map[string]string
		city      string
		state     string
		country   string
		formatted string
	}{
		{
			name:      "town and province",
			address:   map[string]string{"town": "Kanata", "province": "Ontario", "country": "Canada"},
			city:      "Kanata",
			state:     "Ontario",
			country:   "Canada",
			formatted: "Kanata, Ontario, Canada",
		},
		{
			name:      "city wins over town",
			address:   map[string]string{"city": "Berlin", "town": "Mitte", "state": "Berlin", "country": "Deutschland"},
			city:      "Berlin",
			state:     "Berlin",
			country:   "Deutschland",
			formatted: "Berlin, Berlin, Deutschland",
		},
		{
			name:      "village",
			address:   map[string]string{"village": "Giverny", "country": "France"},
			city:      "Giverny",
			state:     UnknownState,
			country:   "France",
			formatted: "Giverny, France",
		},
		{
			name:      "hamlet only",
			address:   map[string]string{"hamlet": "Tiny"},
			city:      "Tiny",
			state:     UnknownState,
			country:   UnknownCountry,
			formatted: "Tiny",
		},
		{
			name:      "empty address",
			address:   nil,
			city:      UnknownCity,
			state:     UnknownState,
			country:   UnknownCountry,
			formatted: UnknownLocation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			geo := fromAddress("", tt.address)
			assert.Equal(t, tt.city, geo.City)
			assert.Equal(t, tt.state, geo.State)
			assert.Equal(t, tt.country, geo.Country)
			assert.Equal(t, tt.formatted, geo.FormattedAddress)
			assert.Equal(t, UnknownLocation, geo.DisplayName)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Config{Delay: -time.Second})
	require.NotNil(t, c.HTTP)
	assert.Equal(t, DefaultEndpoint, c.Config.Endpoint)
	assert.Equal(t, DefaultUserAgent, c.Config.UserAgent)
	assert.Equal(t, DefaultTimeout, c.Config.Timeout)
	assert.Zero(t, c.Config.Delay)
}
