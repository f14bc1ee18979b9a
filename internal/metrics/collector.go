package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sdwan-sites/pkg/models"
)

var (
	upDesc = prometheus.NewDesc(
		"sdwan_up", "Was the last inventory scrape successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"sdwan_scrape_duration_seconds", "Time taken to fetch and aggregate the inventory.", nil, nil,
	)
	sitesDesc = prometheus.NewDesc(
		"sdwan_sites_total", "Sites grouped by classification.", []string{"site_type"}, nil,
	)
	siteDevicesDesc = prometheus.NewDesc(
		"sdwan_site_devices", "Devices per site.", []string{"site_id", "site_type", "city", "country"}, nil,
	)
	deviceReachableDesc = prometheus.NewDesc(
		"sdwan_device_reachable", "Controller reachability (1 = reachable).", []string{"site_id", "hostname", "system_ip", "device_type"}, nil,
	)
	tlocControlDesc = prometheus.NewDesc(
		"sdwan_tloc_control_connections_up", "Control connections up per TLOC.", []string{"system_ip", "color"}, nil,
	)
	tlocBFDDesc = prometheus.NewDesc(
		"sdwan_tloc_bfd_sessions_up", "BFD sessions up per TLOC.", []string{"system_ip", "color"}, nil,
	)
)

// SiteCollector exposes the aggregated inventory. Every scrape calls Scrape,
// scrapes are serialized because the geocode cache is not synchronized.
type SiteCollector struct {
	Scrape func() (*models.SiteMap, error)
	Log    zerolog.Logger
	Mutex  sync.Mutex
}

func (c *SiteCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- sitesDesc
	ch <- siteDevicesDesc
	ch <- deviceReachableDesc
	ch <- tlocControlDesc
	ch <- tlocBFDDesc
}

func (c *SiteCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	start := time.Now()

	sites, err := c.Scrape()
	if err != nil {
		c.Log.Error().Err(err).Msg("Inventory scrape failed")
		ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
		return
	}

	for _, t := range []string{models.SiteTypeControlPlane, models.SiteTypeBranch} {
		ch <- prometheus.MustNewConstMetric(sitesDesc, prometheus.GaugeValue, float64(sites.CountByType(t)), t)
	}

	// Devices missing attributes share "N/A" labels; emit each series once.
	seen := make(map[string]bool)
	sites.Each(func(key string, site *models.Site) {
		city, country := "unknown", "unknown"
		if geo := site.GeocodedLocation; geo != nil {
			city, country = geo.City, geo.Country
		}
		ch <- prometheus.MustNewConstMetric(siteDevicesDesc, prometheus.GaugeValue,
			float64(len(site.Devices)), key, site.SiteType, city, country)

		for _, d := range site.Devices {
			id := key + "|" + d.Hostname + "|" + d.SystemIP + "|" + d.DeviceType
			if seen[id] {
				continue
			}
			seen[id] = true

			up := 0.0
			if d.Reachable() {
				up = 1.0
			}
			ch <- prometheus.MustNewConstMetric(deviceReachableDesc, prometheus.GaugeValue, up,
				key, d.Hostname, d.SystemIP, d.DeviceType)

			for _, t := range d.Tlocs {
				tid := "tloc|" + d.SystemIP + "|" + t.Color
				if seen[tid] {
					continue
				}
				seen[tid] = true
				ch <- prometheus.MustNewConstMetric(tlocControlDesc, prometheus.GaugeValue, float64(t.ControlConnectionsUp), d.SystemIP, t.Color)
				ch <- prometheus.MustNewConstMetric(tlocBFDDesc, prometheus.GaugeValue, float64(t.BFDSessionsUp), d.SystemIP, t.Color)
			}
		}
	})

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}
