package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdwan-sites/pkg/models"
)

func testSites() *models.SiteMap {
	m := models.NewSiteMap()

	ctrl := m.GetOrCreate("1")
	ctrl.SiteType = models.SiteTypeControlPlane
	ctrl.Devices = append(ctrl.Devices, &models.Device{Hostname: "vmanage", SystemIP: "1.1.1.1", DeviceType: "vmanage", Reachability: "reachable"})

	br := m.GetOrCreate("100")
	br.SiteType = models.SiteTypeBranch
	br.GeocodedLocation = &models.GeoLocation{City: "San Francisco", Country: "United States"}
	br.Devices = append(br.Devices,
		&models.Device{Hostname: "r1", SystemIP: "10.0.0.1", DeviceType: "vedge", Reachability: "reachable",
			Tlocs: []models.TlocInfo{{Color: "mpls", ControlConnectionsUp: 2, BFDSessionsUp: 4}}},
		&models.Device{Hostname: "N/A", SystemIP: "N/A", DeviceType: "N/A", Reachability: "N/A"},
		&models.Device{Hostname: "N/A", SystemIP: "N/A", DeviceType: "N/A", Reachability: "N/A"},
	)
	return m
}

func TestSiteCollector_Collect(t *testing.T) {
	t.Parallel()

	c := &SiteCollector{
		Scrape: func() (*models.SiteMap, error) { return testSites(), nil },
		Log:    zerolog.Nop(),
	}

	expected := `
# HELP sdwan_sites_total Sites grouped by classification.
# TYPE sdwan_sites_total gauge
sdwan_sites_total{site_type="branch"} 1
sdwan_sites_total{site_type="control_plane"} 1
# HELP sdwan_device_reachable Controller reachability (1 = reachable).
# TYPE sdwan_device_reachable gauge
sdwan_device_reachable{device_type="N/A",hostname="N/A",site_id="100",system_ip="N/A"} 0
sdwan_device_reachable{device_type="vedge",hostname="r1",site_id="100",system_ip="10.0.0.1"} 1
sdwan_device_reachable{device_type="vmanage",hostname="vmanage",site_id="1",system_ip="1.1.1.1"} 1
# HELP sdwan_site_devices Devices per site.
# TYPE sdwan_site_devices gauge
sdwan_site_devices{city="San Francisco",country="United States",site_id="100",site_type="branch"} 3
sdwan_site_devices{city="unknown",country="unknown",site_id="1",site_type="control_plane"} 1
# HELP sdwan_tloc_bfd_sessions_up BFD sessions up per TLOC.
# TYPE sdwan_tloc_bfd_sessions_up gauge
sdwan_tloc_bfd_sessions_up{color="mpls",system_ip="10.0.0.1"} 4
# HELP sdwan_up Was the last inventory scrape successful.
# TYPE sdwan_up gauge
sdwan_up 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sdwan_sites_total", "sdwan_device_reachable", "sdwan_site_devices", "sdwan_tloc_bfd_sessions_up", "sdwan_up")
	require.NoError(t, err)
}

func TestSiteCollector_ScrapeFailure(t *testing.T) {
	t.Parallel()

	c := &SiteCollector{
		Scrape: func() (*models.SiteMap, error) { return nil, errors.New("controller down") },
		Log:    zerolog.Nop(),
	}

	expected := `
# HELP sdwan_up Was the last inventory scrape successful.
# TYPE sdwan_up gauge
sdwan_up 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "sdwan_up"))
	assert.Equal(t, 2, testutil.CollectAndCount(c))
}

func TestGeocodeMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewGeocodeMetrics(reg)
	m.ObserveRequest(ResultSuccess)
	m.ObserveRequest(ResultError)
	m.ObserveRequest(ResultError)
	m.ObserveCacheHit()

	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues(ResultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheHits), 0)

	var nilMetrics *GeocodeMetrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveRequest(ResultSuccess)
		nilMetrics.ObserveCacheHit()
	})
}
