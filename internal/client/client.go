package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrAuthentication is returned when the controller rejects the login or token request.
var ErrAuthentication = errors.New("authentication failed")

const (
	loginPath = "/j_security_check"
	tokenPath = "/dataservice/client/token"

	// XSRFHeader carries the token on every request after login.
	XSRFHeader = "X-XSRF-TOKEN"
)

type ControllerClient struct {
	HTTP   *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Insecure bool          // Accept self-signed controller certificates
	Timeout  time.Duration // Per-request timeout, zero means no timeout
}

func New(cfg ClientConfig) *ControllerClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("Accept", "application/json")

	// The JSESSIONID cookie from j_security_check authenticates every later call.
	jar, _ := cookiejar.New(nil)
	r.SetCookieJar(jar)

	if cfg.Insecure {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}

	return &ControllerClient{
		HTTP:   r,
		Config: cfg,
	}
}

// Authenticate logs in with form credentials, fetches the XSRF token and
// injects it into all future requests for this client instance.
func (c *ControllerClient) Authenticate() error {
	resp, err := c.HTTP.R().
		SetFormData(map[string]string{
			"j_username": c.Config.Username,
			"j_password": c.Config.Password,
		}).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: login returned %s", ErrAuthentication, resp.Status())
	}

	// vManage answers bad credentials with 200 and the login page again.
	if strings.Contains(strings.ToLower(resp.String()), "<html") {
		return fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	}

	resp, err = c.HTTP.R().
		SetHeader("Accept", "text/plain").
		Get(tokenPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: token request returned %s", ErrAuthentication, resp.Status())
	}

	token := strings.TrimSpace(resp.String())
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrAuthentication)
	}

	c.HTTP.SetHeader(XSRFHeader, token)
	return nil
}
