package rkeeper

import (
	"errors"
	"net/url"
	"time"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// Config holds configuration for the R-Keeper 7 XML interface
type Config struct {
	// APIURL is the XML interface endpoint, e.g. https://host:port/rk7api/v0/xmlinterface.xml
	APIURL string
	// LicenseAnchor is the license anchor issued for the integration
	LicenseAnchor string
	// LicenseToken is the license token issued for the integration
	LicenseToken string
	// LicenseInstanceGUID identifies the license instance whose sequence is tracked
	LicenseInstanceGUID string
	// DefaultStationCode is used when an order cannot be mapped to a station
	DefaultStationCode int
	// InsecureTLS disables certificate and hostname verification and enables
	// legacy protocol versions and cipher suites. The POS XML interface is
	// usually served with a self-signed certificate on an internal network.
	InsecureTLS bool
	// ReadTimeout bounds reference and menu queries
	ReadTimeout time.Duration
	// WriteTimeout bounds CreateOrder, SaveOrder and license queries
	WriteTimeout time.Duration
	// MaxRetries is the number of retries on HTTP 500/502/503/504
	MaxRetries int
	// RetryBackoff is the fixed delay between retries
	RetryBackoff time.Duration
}

// Defaults
const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
)

// Errors for R-Keeper configuration
var (
	ErrConfigMissingURL = errors.New("rkeeper: API URL is required")
	ErrConfigInvalidURL = errors.New("rkeeper: API URL must be an absolute http(s) URL")
	ErrConfigRetries    = errors.New("rkeeper: max retries cannot be negative")
)

// NewConfig creates a new R-Keeper configuration with defaults
func NewConfig(apiURL string) *Config {
	return &Config{
		APIURL:             apiURL,
		DefaultStationCode: pos.DefaultStationCode,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		MaxRetries:         DefaultMaxRetries,
		RetryBackoff:       DefaultRetryBackoff,
	}
}

// Validate validates the configuration and fills unset values with defaults.
// License fields are optional; without all three no license block is sent.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrConfigMissingURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidURL
	}
	if c.DefaultStationCode <= 0 {
		c.DefaultStationCode = pos.DefaultStationCode
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	// 0 disables retries
	if c.MaxRetries < 0 {
		return ErrConfigRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return nil
}

// License returns the configured license credentials
func (c *Config) License() pos.LicenseCredentials {
	return pos.LicenseCredentials{
		Anchor:       c.LicenseAnchor,
		Token:        c.LicenseToken,
		InstanceGUID: c.LicenseInstanceGUID,
	}
}
