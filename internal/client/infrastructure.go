package client

import (
	"fmt"
	"net/http"

	"sdwan-sites/pkg/models"
)

const (
	devicePath = "/dataservice/device"
	tlocPath   = "/dataservice/device/tloc"
)

// StatusError reports a non-200 answer from a collection endpoint.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %d: %s", e.Path, e.Code, e.Body)
}

// Unauthorized reports whether the session was rejected (expired or missing token).
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// GetDevices fetches the full device inventory.
func (c *ControllerClient) GetDevices() ([]models.RawDevice, error) {
	var respData models.DeviceListResponse

	resp, err := c.HTTP.R().
		ExpectContentType("application/json").
		SetResult(&respData).
		Get(devicePath)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Path: devicePath, Code: resp.StatusCode(), Body: resp.String()}
	}

	if respData.Data == nil {
		return nil, fmt.Errorf("GET %s: response has no data field", devicePath)
	}

	return respData.Data, nil
}

// GetTlocs fetches transport locator state for every device.
func (c *ControllerClient) GetTlocs() ([]models.RawTloc, error) {
	var respData models.TlocListResponse

	resp, err := c.HTTP.R().
		ExpectContentType("application/json").
		SetResult(&respData).
		Get(tlocPath)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Path: tlocPath, Code: resp.StatusCode(), Body: resp.String()}
	}

	return respData.Data, nil
}
