package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"sdwan-sites/pkg/models"
)

// WriteMarkdown renders the site report and location summary as a markdown document.
func WriteMarkdown(w io.Writer, sites *models.SiteMap) error {
	md := markdown.NewMarkdown(w)

	md.H1("SD-WAN Sites")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Sites", "Control Plane", "Branch"},
		Rows: [][]string{{
			strconv.Itoa(sites.Len()),
			strconv.Itoa(sites.CountByType(models.SiteTypeControlPlane)),
			strconv.Itoa(sites.CountByType(models.SiteTypeBranch)),
		}},
	})
	md.PlainText("")

	writeMarkdownGroup(md, sites, models.SiteTypeControlPlane, "Control Plane Sites")
	writeMarkdownGroup(md, sites, models.SiteTypeBranch, "Branch Sites")

	countries, cities := GroupLocations(sites)
	md.H2("Location Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Country", "Sites"},
		Rows:   groupRows(countries),
	})
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"City", "Sites"},
		Rows:   groupRows(cities),
	})

	return md.Build()
}

func writeMarkdownGroup(md *markdown.Markdown, sites *models.SiteMap, siteType, title string) {
	if sites.CountByType(siteType) == 0 {
		return
	}

	md.H2(title)
	md.PlainText("")

	sites.Each(func(key string, site *models.Site) {
		if site.SiteType != siteType {
			return
		}

		md.H3(fmt.Sprintf("Site %s (%d devices)", key, len(site.Devices)))
		md.PlainText("")

		if geo := site.GeocodedLocation; geo != nil && site.Location != nil {
			md.BulletList(
				fmt.Sprintf("%s: %s", locationLabel(site), geo.FormattedAddress),
				fmt.Sprintf("Coordinates: %s, %s", models.FormatCoord(site.Location.Latitude), models.FormatCoord(site.Location.Longitude)),
			)
			md.PlainText("")
		}

		rows := make([][]string, 0, len(site.Devices))
		for _, d := range site.Devices {
			rows = append(rows, []string{
				status(d), d.Hostname, d.DeviceType, d.SystemIP, d.DeviceModel, d.Version, tlocSummary(d),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Status", "Hostname", "Type", "System IP", "Model", "Version", "TLOCs"},
			Rows:   rows,
		})
		md.PlainText("")
	})
}

func groupRows(groups []LocationGroup) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Label, siteList(g.Sites)})
	}
	return rows
}

func tlocSummary(d *models.Device) string {
	if len(d.Tlocs) == 0 {
		return "-"
	}
	s := ""
	for i, t := range d.Tlocs {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s %d/%d", t.Color, t.ControlConnectionsUp, t.BFDSessionsUp)
	}
	return s
}
