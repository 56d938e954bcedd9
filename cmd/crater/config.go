package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/craterhq/crater-go/internal/flagx"
	"github.com/craterhq/crater-go/internal/timex"
)

// Config holds runtime settings for the crater CLI.
type Config struct {
	BaseURL     string
	Tenant      string
	StoragePath string
	Timeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8055"
	c.Timeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	BaseURL     string         `json:"base_url"`
	Tenant      string         `json:"tenant"`
	StoragePath string         `json:"storage_path"`
	Timeout     timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Absent file means no overlay.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.Tenant != "" {
		cfg.Tenant = jc.Tenant
	}
	if jc.StoragePath != "" {
		cfg.StoragePath = jc.StoragePath
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the backend
//	-t string   tenant identifier
//	-d string   SQLite path for persisted credentials (default: in-memory)
//	-o int      request timeout in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "base URL of the backend")
	fs.StringVar(&cfg.Tenant, "t", cfg.Tenant, "tenant identifier")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "SQLite path for persisted credentials")
	timeout := fs.Int("o", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
}
