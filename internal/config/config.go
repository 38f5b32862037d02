package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultWorkers is the number of pages fetched concurrently per crawl.
	DefaultWorkers = 4

	// DefaultTimeout bounds a single page load. Browser engines wait for
	// scripts too, so this is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultEngine is the page renderer used when none is selected.
	DefaultEngine = "http"

	// DefaultAttempts is the number of navigations tried when a server
	// aborts the request.
	DefaultAttempts = 3

	// DefaultBatchSize is the number of seeds crawled at the same time.
	DefaultBatchSize = 2

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution overhead.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultMaxBodySize limits how much of a response body the HTTP engine reads.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies linkscan in HTTP requests.
	DefaultUserAgent = "linkscan/1.0 (+https://github.com/nao1215/linkscan)"

	// AppName is the application name used for XDG directory paths.
	AppName = "linkscan"
)

// Config holds all configuration options for linkscan.
// It is populated from defaults, LINKSCAN_* environment variables and CLI
// flags, in that order of precedence, and passed through the application
// rather than kept in global state.
//
// Fields with an envconfig tag can be set from the environment; the tag is
// the full variable name.
type Config struct {
	// Seeds are the URLs to crawl. Each seed is crawled independently.
	Seeds []string `ignored:"true"`

	// Workers is the number of pages fetched concurrently within one crawl.
	Workers int `envconfig:"LINKSCAN_WORKERS"`

	// MaxDepth is how many links away from the seed pages are fetched.
	// 0 means unlimited.
	MaxDepth int `envconfig:"LINKSCAN_DEPTH"`

	// MaxPages caps the number of URLs fetched per crawl, external links
	// included. 0 means unlimited.
	MaxPages int `envconfig:"LINKSCAN_MAX_PAGES"`

	// Timeout bounds a single page load. Exceeding it marks the page
	// CONNECTION_TIMED_OUT.
	Timeout time.Duration `envconfig:"LINKSCAN_TIMEOUT"`

	// Engine selects the page renderer: "http", "chrome" or "playwright".
	Engine string `envconfig:"LINKSCAN_ENGINE"`

	// Attempts is the number of navigations tried when a server aborts a request.
	Attempts int `envconfig:"LINKSCAN_RETRIES"`

	// NavigationDelay is waited before each navigation, multiplied by the
	// attempt number. Some servers abort bursts of requests; a delay of
	// a few hundred milliseconds avoids that.
	NavigationDelay time.Duration `envconfig:"LINKSCAN_NAVIGATION_DELAY"`

	// Rate limits navigations per second across all workers. 0 disables limiting.
	Rate float64 `envconfig:"LINKSCAN_RATE"`

	// ProxyAddress routes all traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string `envconfig:"LINKSCAN_PROXY"`

	// UseTor starts an embedded Tor daemon and routes traffic through it.
	// Required for .onion seeds unless ProxyAddress points at a Tor proxy.
	UseTor bool `envconfig:"LINKSCAN_TOR"`

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration `envconfig:"LINKSCAN_TOR_STARTUP_TIMEOUT"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `envconfig:"LINKSCAN_USER_AGENT"`

	// InsecureTLS skips certificate verification. Invalid certificates are
	// then no longer reported as CERT_INVALID.
	InsecureTLS bool `envconfig:"LINKSCAN_INSECURE_TLS"`

	// ShowBrowser runs the browser engines with a visible window.
	ShowBrowser bool `envconfig:"LINKSCAN_SHOW_BROWSER"`

	// MaxBodySize is the maximum response body size the HTTP engine reads.
	MaxBodySize int64 `envconfig:"LINKSCAN_MAX_BODY_SIZE"`

	// Verbose enables debug logging. When false only warnings and errors are logged.
	Verbose bool `envconfig:"LINKSCAN_VERBOSE"`

	// LogFormat is "text" or "json".
	LogFormat string `envconfig:"LINKSCAN_LOG_FORMAT"`

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int `envconfig:"LINKSCAN_BATCH"`

	// ConfigFilePath is the path to the configuration file.
	// If empty, .linkscan is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string `envconfig:"LINKSCAN_CONFIG"`

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File `ignored:"true"`

	// JSONReport, MarkdownReport and CSVReport select the report format.
	// At most one may be set; the default is human-readable text.
	JSONReport     bool `ignored:"true"`
	MarkdownReport bool `ignored:"true"`
	CSVReport      bool `ignored:"true"`

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string `ignored:"true"`

	// SaveToDB stores every crawl report in the archive.
	SaveToDB bool `envconfig:"LINKSCAN_SAVE"`

	// DBDSN selects the archive database. Empty means a SQLite database in
	// the XDG data directory; a path ending in .db selects another SQLite
	// file; a postgres:// URL selects PostgreSQL.
	DBDSN string `envconfig:"LINKSCAN_DB"`

	// FailOnDead makes the scan exit with a non-zero status when dead links are found.
	FailOnDead bool `envconfig:"LINKSCAN_FAIL_ON_DEAD"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		Engine:            DefaultEngine,
		Attempts:          DefaultAttempts,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		LogFormat:         "text",
		BatchSize:         DefaultBatchSize,
		SaveToDB:          true,
	}
}

// XDGDataDir returns the XDG data directory for linkscan.
// On Linux: ~/.local/share/linkscan
// On macOS: ~/Library/Application Support/linkscan
// On Windows: %LOCALAPPDATA%\linkscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Attempts <= 0 {
		return ErrInvalidAttempts
	}
	if c.NavigationDelay < 0 {
		return ErrInvalidNavigationDelay
	}
	if c.Rate < 0 {
		return ErrInvalidRate
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
