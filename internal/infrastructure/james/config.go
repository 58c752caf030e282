package james

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// Config holds connection settings for the James webadmin API
type Config struct {
	// URL is the webadmin base URL, e.g. http://localhost:8000
	URL string
	// Username and Password are sent as HTTP basic credentials
	Username string
	Password string
	// Timeout bounds a single request
	Timeout time.Duration
}

// DefaultTimeout is used when no timeout is configured
const DefaultTimeout = 30 * time.Second

// Errors for James configuration
var (
	ErrConfigMissingURL      = fmt.Errorf("%w: james url is required", directory.ErrConfiguration)
	ErrConfigInvalidURL      = fmt.Errorf("%w: james url must be absolute http(s)", directory.ErrConfiguration)
	ErrConfigMissingUsername = fmt.Errorf("%w: james username is required", directory.ErrConfiguration)
	ErrConfigMissingPassword = fmt.Errorf("%w: james password is required", directory.ErrConfiguration)
)

// NewConfig creates a configuration with defaults
func NewConfig(rawURL, username, password string) *Config {
	return &Config{
		URL:      rawURL,
		Username: username,
		Password: password,
		Timeout:  DefaultTimeout,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return ErrConfigMissingURL
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidURL
	}
	if c.Username == "" {
		return ErrConfigMissingUsername
	}
	if c.Password == "" {
		return ErrConfigMissingPassword
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
