package report

import (
	"io"
	"sort"
	"strings"

	"sdwan-sites/pkg/models"
)

// LocationGroup is a set of sites sharing a resolved place.
type LocationGroup struct {
	Label string
	Sites []string
}

// GroupLocations buckets geocoded sites by country and by "city, state, country".
// Groups are sorted by label, site keys keep their encounter order.
func GroupLocations(sites *models.SiteMap) (countries, cities []LocationGroup) {
	byCountry := make(map[string][]string)
	byCity := make(map[string][]string)

	sites.Each(func(key string, site *models.Site) {
		geo := site.GeocodedLocation
		if geo == nil {
			return
		}
		byCountry[geo.Country] = append(byCountry[geo.Country], key)
		label := geo.City + ", " + geo.State + ", " + geo.Country
		byCity[label] = append(byCity[label], key)
	})

	return sortedGroups(byCountry), sortedGroups(byCity)
}

func sortedGroups(m map[string][]string) []LocationGroup {
	out := make([]LocationGroup, 0, len(m))
	for label, keys := range m {
		out = append(out, LocationGroup{Label: label, Sites: keys})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// WriteLocationSummary prints the sites found in each country and city.
func WriteLocationSummary(w io.Writer, sites *models.SiteMap) error {
	countries, cities := GroupLocations(sites)
	p := &printer{w: w}

	p.println("\nLOCATION SUMMARY")
	p.println(rule)

	p.printf("\nCountries (%d):\n", len(countries))
	for _, g := range countries {
		p.printf("   %s: %s\n", g.Label, siteList(g.Sites))
	}

	p.printf("\nCities (%d):\n", len(cities))
	for _, g := range cities {
		p.printf("   %s: %s\n", g.Label, siteList(g.Sites))
	}

	return p.err
}

func siteList(keys []string) string {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = "Site " + k
	}
	return strings.Join(labels, ", ")
}
