package report

import (
	"io"
)

const usageGuide = `
PROBLEM: the controller has no endpoint that returns the site hierarchy

APPROACH: combine two inventory calls and enrich them with geocoding

API CALLS:

1. GET /dataservice/device
   - every device with site-id, GPS coordinates and software details
   - primary data source; devices are grouped by site-id

2. GET /dataservice/device/tloc
   - transport locators with control connection and BFD session counts
   - joined to devices by system-ip

3. Reverse geocoding (Nominatim /reverse)
   - turns latitude/longitude into city, state and country
   - free service, one request per second, identify with a User-Agent

STEPS:

  1. Log in (j_security_check) and fetch the XSRF token
  2. Fetch the device list and group it by site-id
  3. Take the first device coordinates of each site as the site location
  4. Reverse geocode each coordinate pair once per run
  5. Classify sites: vmanage, vsmart or vbond make a control plane site
  6. Attach TLOC state by system-ip
  7. Print the report and export the site map as JSON

NOTES:

- The hierarchy is implicit: site-id is the only grouping key
- Coordinates come from device GPS or from the site settings (isDeviceGeoData)
- Site names are not exposed by these endpoints
- Geocoding depends on an external service and its rate limit
`

// WriteUsageGuide prints the static reference for the API calls used.
func WriteUsageGuide(w io.Writer) error {
	p := &printer{w: w}
	p.println("")
	p.println(banner)
	p.println("API USAGE GUIDE - SITE HIERARCHY WITH GEOCODING")
	p.println(banner)
	p.println(usageGuide)
	return p.err
}
