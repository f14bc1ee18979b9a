// Package report renders aggregated sites as console text, markdown and JSON.
// Renderers only read the site map.
package report

import (
	"fmt"
	"io"
	"strings"

	"sdwan-sites/pkg/models"
)

var (
	banner = strings.Repeat("=", 80)
	rule   = strings.Repeat("-", 40)
)

// WriteSiteReport prints control plane and branch sites with their devices.
// Sites still classified unknown have no devices and are left out.
func WriteSiteReport(w io.Writer, sites *models.SiteMap) error {
	p := &printer{w: w}

	p.println("")
	p.println(banner)
	p.println("CISCO SD-WAN SITES WITH GEOCODED LOCATIONS")
	p.println(banner)

	control := sites.CountByType(models.SiteTypeControlPlane)
	branch := sites.CountByType(models.SiteTypeBranch)

	p.printf("\nSummary: %d sites discovered\n", sites.Len())
	p.printf("   Control Plane Sites: %d\n", control)
	p.printf("   Branch Sites: %d\n", branch)

	if control > 0 {
		p.println("\nCONTROL PLANE SITES")
		p.println(rule)
		writeGroup(p, sites, models.SiteTypeControlPlane)
	}

	if branch > 0 {
		p.println("\nBRANCH SITES")
		p.println(rule)
		writeGroup(p, sites, models.SiteTypeBranch)
	}

	return p.err
}

func writeGroup(p *printer, sites *models.SiteMap, siteType string) {
	sites.Each(func(key string, site *models.Site) {
		if site.SiteType != siteType {
			return
		}

		p.printf("\nSite %s (%d devices)\n", key, len(site.Devices))

		if geo := site.GeocodedLocation; geo != nil && site.Location != nil {
			p.printf("   %s: %s\n", locationLabel(site), geo.FormattedAddress)
			p.printf("   City: %s, %s, %s %s\n", geo.City, geo.State, geo.Country, geo.CountryCode)
			if geo.Postcode != "" {
				p.printf("   Postal Code: %s\n", geo.Postcode)
			}
			p.printf("   Coordinates: %s, %s\n", models.FormatCoord(site.Location.Latitude), models.FormatCoord(site.Location.Longitude))
		}

		for _, d := range site.Devices {
			p.printf("   [%s] %s (%s)\n", status(d), d.Hostname, d.DeviceType)
			p.printf("      System IP: %s, Model: %s\n", d.SystemIP, d.DeviceModel)
			p.printf("      Version: %s, Platform: %s\n", d.Version, d.Platform)

			if len(d.Tlocs) > 0 {
				p.println("      Network Connections:")
				for _, t := range d.Tlocs {
					p.printf("        %s: %d control, %d BFD\n", t.Color, t.ControlConnectionsUp, t.BFDSessionsUp)
				}
			}
		}
	})
}

func locationLabel(site *models.Site) string {
	switch {
	case site.SiteType == models.SiteTypeControlPlane:
		return "Location"
	case site.Location.IsDeviceGPS:
		return "Device GPS"
	default:
		return "Site Location"
	}
}

func status(d *models.Device) string {
	if d.Reachable() {
		return "ONLINE"
	}
	return "OFFLINE"
}

// printer remembers the first write error so renderers can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(s string) {
	p.printf("%s\n", s)
}
