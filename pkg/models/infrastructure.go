package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// --- Device Models ---

// DeviceListResponse wraps GET /dataservice/device
type DeviceListResponse struct {
	Data []RawDevice `json:"data"`
}

// RawDevice is a single device record as returned by the controller.
// Pointer fields stay nil when the controller omits them.
type RawDevice struct {
	SiteID       *string `json:"site-id"`
	HostName     *string `json:"host-name"`
	SystemIP     *string `json:"system-ip"`
	DeviceType   *string `json:"device-type"`
	DeviceModel  *string `json:"device-model"`
	Reachability *string `json:"reachability"`
	Version      *string `json:"version"`
	Platform     *string `json:"platform"`
	Latitude     Coord   `json:"latitude"`
	Longitude    Coord   `json:"longitude"`
	IsDeviceGPS  bool    `json:"isDeviceGeoData"`
}

// UnmarshalJSON reads each field on its own so that a wrongly typed value only
// loses that field. Numbers are kept by their literal text; other types count as
// absent. A record that is not an object decodes to the zero device.
func (d *RawDevice) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		*d = RawDevice{}
		return nil
	}

	*d = RawDevice{
		SiteID:       scalar(fields["site-id"]),
		HostName:     scalar(fields["host-name"]),
		SystemIP:     scalar(fields["system-ip"]),
		DeviceType:   scalar(fields["device-type"]),
		DeviceModel:  scalar(fields["device-model"]),
		Reachability: scalar(fields["reachability"]),
		Version:      scalar(fields["version"]),
		Platform:     scalar(fields["platform"]),
	}
	if raw, ok := fields["latitude"]; ok {
		_ = d.Latitude.UnmarshalJSON(raw)
	}
	if raw, ok := fields["longitude"]; ok {
		_ = d.Longitude.UnmarshalJSON(raw)
	}
	if raw, ok := fields["isDeviceGeoData"]; ok {
		_ = json.Unmarshal(raw, &d.IsDeviceGPS)
	}
	return nil
}

// scalar returns the text of a JSON string or number, nil for anything else.
func scalar(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return &s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	v := n.String()
	return &v
}

// Coord holds a raw coordinate. Controllers send it as a string, some
// releases as a JSON number; both decode to the same text. Any other
// type decodes as an empty coordinate.
type Coord string

func (c *Coord) UnmarshalJSON(b []byte) error {
	if v := scalar(b); v != nil {
		*c = Coord(strings.TrimSpace(*v))
	} else {
		*c = ""
	}
	return nil
}

// --- TLOC Models ---

// TlocListResponse wraps GET /dataservice/device/tloc
type TlocListResponse struct {
	Data []RawTloc `json:"data"`
}

type RawTloc struct {
	SystemIP           string  `json:"system-ip"`
	Color              *string `json:"color"`
	ControlConnections Count   `json:"controlConnectionsUp"`
	BFDSessions        Count   `json:"bfdSessionsUp"`
}

// Count decodes integers the controller sends either as numbers or as numeric strings.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*c = 0
			return nil
		}
		b = []byte(s)
	}

	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", string(b), err)
	}
	*c = Count(n)
	return nil
}
