package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FormatCoord prints a coordinate as the shortest exact decimal, keeping a
// trailing ".0" on whole numbers (40 prints as "40.0").
func FormatCoord(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Site type classifications.
const (
	SiteTypeControlPlane = "control_plane"
	SiteTypeBranch       = "branch"
	SiteTypeUnknown      = "unknown"
)

// UnknownSiteKey groups devices that carry no site-id.
const UnknownSiteKey = "unknown"

// GeoLocation is the human-readable form of a coordinate pair.
type GeoLocation struct {
	DisplayName      string `json:"display_name"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	CountryCode      string `json:"country_code"`
	Postcode         string `json:"postcode"`
	FormattedAddress string `json:"formatted_address"`
}

// Location is a device or site coordinate with its geocoded address.
type Location struct {
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	IsDeviceGPS bool         `json:"is_device_gps"`
	Geocoded    *GeoLocation `json:"geocoded,omitempty"`
}

// TlocInfo summarizes one transport locator of a device.
type TlocInfo struct {
	Color                string `json:"color"`
	ControlConnectionsUp int    `json:"control_connections_up"`
	BFDSessionsUp        int    `json:"bfd_sessions_up"`
}

// Device is the normalized view of a controller device record.
type Device struct {
	Hostname     string     `json:"hostname"`
	SystemIP     string     `json:"system_ip"`
	DeviceType   string     `json:"device_type"`
	DeviceModel  string     `json:"device_model"`
	Reachability string     `json:"reachability"`
	Version      string     `json:"version"`
	Platform     string     `json:"platform"`
	Location     *Location  `json:"location,omitempty"`
	Tlocs        []TlocInfo `json:"tloc_info,omitempty"`
}

// Reachable reports whether the controller sees the device as reachable.
func (d Device) Reachable() bool {
	return d.Reachability == "reachable"
}

// Site groups the devices sharing a site-id.
type Site struct {
	Devices          []*Device    `json:"devices"`
	Location         *Location    `json:"location"`
	GeocodedLocation *GeoLocation `json:"geocoded_location"`
	SiteType         string       `json:"site_type"`
}

// NewSite returns an empty site of unknown type.
func NewSite() *Site {
	return &Site{
		Devices:  []*Device{},
		SiteType: SiteTypeUnknown,
	}
}

// SiteMap is an insertion-ordered mapping of site key to site.
type SiteMap struct {
	keys  []string
	sites map[string]*Site
}

func NewSiteMap() *SiteMap {
	return &SiteMap{sites: make(map[string]*Site)}
}

// GetOrCreate returns the site for key, inserting an empty one on first use.
func (m *SiteMap) GetOrCreate(key string) *Site {
	if s, ok := m.sites[key]; ok {
		return s
	}
	s := NewSite()
	m.keys = append(m.keys, key)
	m.sites[key] = s
	return s
}

func (m *SiteMap) Get(key string) (*Site, bool) {
	s, ok := m.sites[key]
	return s, ok
}

// Keys returns site keys in first-seen order.
func (m *SiteMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *SiteMap) Len() int {
	return len(m.keys)
}

// Each calls fn for every site in first-seen order.
func (m *SiteMap) Each(fn func(key string, site *Site)) {
	for _, k := range m.keys {
		fn(k, m.sites[k])
	}
}

// CountByType returns how many sites carry the given classification.
func (m *SiteMap) CountByType(siteType string) int {
	n := 0
	for _, k := range m.keys {
		if m.sites[k].SiteType == siteType {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the sites as a JSON object keeping first-seen key order.
func (m *SiteMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.sites[k])
		if err != nil {
			return nil, fmt.Errorf("encode site %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of sites, preserving document key order.
func (m *SiteMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("site map: expected JSON object")
	}

	m.keys = nil
	m.sites = make(map[string]*Site)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("site map: unexpected key token %v", tok)
		}

		site := NewSite()
		if err := dec.Decode(site); err != nil {
			return fmt.Errorf("decode site %s: %w", key, err)
		}
		if _, dup := m.sites[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.sites[key] = site
	}

	_, err = dec.Token()
	return err
}
