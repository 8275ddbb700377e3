package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "abcreport.yaml"

// EnvPrefix starts every environment variable that overrides the file.
const EnvPrefix = "ABCREPORT_"

type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Browser BrowserConfig `yaml:"browser"`
	HTTP    HTTPConfig    `yaml:"http"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig locates the report page. Selectors are fixed in code.
type SiteConfig struct {
	PageURL         string `yaml:"page_url"`
	QueryDateLayout string `yaml:"query_date_layout"` // Go layout of the RPTDATE parameter
	PageLength      int    `yaml:"page_length"`       // 0 keeps the site's page size
}

type BrowserConfig struct {
	Backend      string `yaml:"backend"` // chrome, http
	Headless     bool   `yaml:"headless"`
	ExecPath     string `yaml:"exec_path"` // empty = search the usual install locations
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
	UserDataDir  string `yaml:"user_data_dir"`
	Timeout      string `yaml:"timeout"` // lifetime of the whole browser, "0" = unlimited
}

type HTTPConfig struct {
	UserAgent     string  `yaml:"user_agent"`
	RateLimit     float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst         int     `yaml:"burst"`
	SaveToFile    bool    `yaml:"save_to_file"`
	NotUseNetwork bool    `yaml:"not_use_network"`
	Cookies       bool    `yaml:"cookies"`
}

type ScrapeConfig struct {
	Mode            string `yaml:"mode"` // datepicker, query, download
	ReadyTimeout    string `yaml:"ready_timeout"`
	PollInterval    string `yaml:"poll_interval"`
	DownloadTimeout string `yaml:"download_timeout"`
	CSVCharset      string `yaml:"csv_charset"`
	SessionName     string `yaml:"session_name"`
	FilePrefix      string `yaml:"file_prefix"`
}

type OutputConfig struct {
	Dir              string   `yaml:"dir"`
	Formats          []string `yaml:"formats"`
	SplitAddress     bool     `yaml:"split_address"`
	SortByReportDate bool     `yaml:"sort_by_report_date"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

func Default() *Config {
	return &Config{
		Site: SiteConfig{
			PageURL:         "https://www.abc.ca.gov/licensing/licensing-reports/new-applications/",
			QueryDateLayout: "2006-01-02",
			PageLength:      100,
		},
		Browser: BrowserConfig{
			Backend:      "chrome",
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			Timeout:      "0",
		},
		HTTP: HTTPConfig{
			RateLimit: 1,
			Burst:     1,
		},
		Scrape: ScrapeConfig{
			Mode:            "datepicker",
			ReadyTimeout:    "30s",
			PollInterval:    "250ms",
			DownloadTimeout: "60s",
			SessionName:     "abcreport",
			FilePrefix:      ".session/",
		},
		Output: OutputConfig{
			Dir:     "data",
			Formats: []string{"csv"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults, then applies ABCREPORT_* environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %v: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv copies the variables of .env style files into the environment without
// replacing variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %v: %w", path, err)
		}
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"PAGE_URL":      &c.Site.PageURL,
		"BACKEND":       &c.Browser.Backend,
		"CHROME_PATH":   &c.Browser.ExecPath,
		"USER_AGENT":    &c.HTTP.UserAgent,
		"MODE":          &c.Scrape.Mode,
		"READY_TIMEOUT": &c.Scrape.ReadyTimeout,
		"CSV_CHARSET":   &c.Scrape.CSVCharset,
		"OUT_DIR":       &c.Output.Dir,
		"LOG_LEVEL":     &c.Logging.Level,
		"LOG_FORMAT":    &c.Logging.Format,
	}
	for name, p := range strs {
		if v, ok := lookupEnv(name); ok {
			*p = v
		}
	}

	bools := map[string]*bool{
		"HEADLESS":      &c.Browser.Headless,
		"SPLIT_ADDRESS": &c.Output.SplitAddress,
		"SORT":          &c.Output.SortByReportDate,
	}
	for name, p := range bools {
		if v, ok := lookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%v%v: %w", EnvPrefix, name, err)
			}
			*p = b
		}
	}

	if v, ok := lookupEnv("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%vRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.HTTP.RateLimit = f
	}
	if v, ok := lookupEnv("FORMATS"); ok {
		c.Output.Formats = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the values that are parsed later, so mistakes surface before a browser starts.
func (c *Config) Validate() error {
	switch c.Browser.Backend {
	case "chrome", "http":
	default:
		return fmt.Errorf("browser.backend: unknown backend %q (want chrome or http)", c.Browser.Backend)
	}
	switch c.Scrape.Mode {
	case "datepicker", "query", "download":
	default:
		return fmt.Errorf("scrape.mode: unknown mode %q (want datepicker, query or download)", c.Scrape.Mode)
	}
	if c.Browser.Backend == "http" && c.Scrape.Mode != "query" {
		return fmt.Errorf("scrape.mode: the http backend only supports query mode, not %q", c.Scrape.Mode)
	}
	for name, s := range map[string]string{
		"browser.timeout":         c.Browser.Timeout,
		"scrape.ready_timeout":    c.Scrape.ReadyTimeout,
		"scrape.poll_interval":    c.Scrape.PollInterval,
		"scrape.download_timeout": c.Scrape.DownloadTimeout,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("%v: %w", name, err)
		}
	}
	if len(c.Output.Formats) == 0 {
		return errors.New("output.formats: at least one format is required")
	}
	return nil
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) BrowserTimeout() time.Duration {
	return duration(c.Browser.Timeout, 0)
}

func (c *Config) ReadyTimeout() time.Duration {
	return duration(c.Scrape.ReadyTimeout, 30*time.Second)
}

func (c *Config) PollInterval() time.Duration {
	return duration(c.Scrape.PollInterval, 250*time.Millisecond)
}

func (c *Config) DownloadTimeout() time.Duration {
	return duration(c.Scrape.DownloadTimeout, 60*time.Second)
}
