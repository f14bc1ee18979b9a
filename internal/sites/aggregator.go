// Package sites groups controller devices into sites and enriches them with
// geocoded locations and TLOC state.
package sites

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"sdwan-sites/pkg/models"
)

// NotAvailable replaces device attributes the controller did not send.
const NotAvailable = "N/A"

// controlPlaneTypes are the orchestration and management roles.
var controlPlaneTypes = map[string]bool{
	"vmanage": true,
	"vsmart":  true,
	"vbond":   true,
}

// IsControlPlane reports whether deviceType is a control plane role.
func IsControlPlane(deviceType string) bool {
	return controlPlaneTypes[deviceType]
}

// Geocoder resolves a coordinate pair. Implementations must always return a usable value.
type Geocoder interface {
	Reverse(lat, lon float64) models.GeoLocation
}

type Aggregator struct {
	geocoder Geocoder
	log      zerolog.Logger
}

func NewAggregator(g Geocoder, log zerolog.Logger) *Aggregator {
	return &Aggregator{geocoder: g, log: log}
}

// Aggregate groups devices by site-id in input order and attaches TLOC data by
// system IP. tlocs may be nil when the controller could not provide them.
func (a *Aggregator) Aggregate(devices []models.RawDevice, tlocs []models.RawTloc) *models.SiteMap {
	sites := models.NewSiteMap()

	for i, raw := range devices {
		key := siteKey(raw)
		site := sites.GetOrCreate(key)
		dev := normalize(raw)

		a.log.Info().
			Int("index", i+1).
			Int("total", len(devices)).
			Str("hostname", stringOr(raw.HostName, "Unknown")).
			Str("site_id", key).
			Msg("Processing device")

		if loc := a.locate(raw); loc != nil {
			dev.Location = loc
			if site.Location == nil {
				site.Location = loc
				site.GeocodedLocation = loc.Geocoded
			}
		}

		if IsControlPlane(dev.DeviceType) {
			site.SiteType = models.SiteTypeControlPlane
		} else if site.SiteType == models.SiteTypeUnknown {
			site.SiteType = models.SiteTypeBranch
		}

		site.Devices = append(site.Devices, dev)
	}

	attachTlocs(sites, tlocs)
	return sites
}

func (a *Aggregator) locate(raw models.RawDevice) *models.Location {
	if raw.Latitude == "" || raw.Longitude == "" {
		return nil
	}

	lat, ok := parseCoord(raw.Latitude)
	if !ok {
		a.log.Warn().Str("hostname", stringOr(raw.HostName, NotAvailable)).Str("latitude", string(raw.Latitude)).Msg("Ignoring unparseable latitude")
		return nil
	}
	lon, ok := parseCoord(raw.Longitude)
	if !ok {
		a.log.Warn().Str("hostname", stringOr(raw.HostName, NotAvailable)).Str("longitude", string(raw.Longitude)).Msg("Ignoring unparseable longitude")
		return nil
	}

	a.log.Debug().Float64("latitude", lat).Float64("longitude", lon).Msg("Geocoding")
	geo := a.geocoder.Reverse(lat, lon)

	return &models.Location{
		Latitude:    lat,
		Longitude:   lon,
		IsDeviceGPS: raw.IsDeviceGPS,
		Geocoded:    &geo,
	}
}

// parseCoord accepts finite decimal values only; NaN and Inf cannot be exported.
func parseCoord(c models.Coord) (float64, bool) {
	f, err := strconv.ParseFloat(string(c), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func attachTlocs(sites *models.SiteMap, tlocs []models.RawTloc) {
	if len(tlocs) == 0 {
		return
	}

	bySystemIP := make(map[string][]models.TlocInfo)
	for _, t := range tlocs {
		if t.SystemIP == "" {
			continue
		}
		bySystemIP[t.SystemIP] = append(bySystemIP[t.SystemIP], models.TlocInfo{
			Color:                stringOr(t.Color, NotAvailable),
			ControlConnectionsUp: int(t.ControlConnections),
			BFDSessionsUp:        int(t.BFDSessions),
		})
	}

	sites.Each(func(_ string, site *models.Site) {
		for _, dev := range site.Devices {
			if info, ok := bySystemIP[dev.SystemIP]; ok {
				dev.Tlocs = info
			}
		}
	})
}

func siteKey(raw models.RawDevice) string {
	if raw.SiteID == nil || *raw.SiteID == "" {
		return models.UnknownSiteKey
	}
	return *raw.SiteID
}

func normalize(raw models.RawDevice) *models.Device {
	return &models.Device{
		Hostname:     stringOr(raw.HostName, NotAvailable),
		SystemIP:     stringOr(raw.SystemIP, NotAvailable),
		DeviceType:   stringOr(raw.DeviceType, NotAvailable),
		DeviceModel:  stringOr(raw.DeviceModel, NotAvailable),
		Reachability: stringOr(raw.Reachability, NotAvailable),
		Version:      stringOr(raw.Version, NotAvailable),
		Platform:     stringOr(raw.Platform, NotAvailable),
	}
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
