package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/cache"
	"github.com/sigreer/sptinv/internal/logging"
	"github.com/sigreer/sptinv/internal/parser"
	"github.com/sigreer/sptinv/internal/ses"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v3"
)

// ToolEnv overrides the spt path when neither a flag nor the config file
// names one.
const ToolEnv = "SPT_PATH"

const (
	DiscoverySPT    = "spt"
	DiscoveryLsscsi = "lsscsi"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Tool is the spt binary. Empty means resolve via SPT_PATH, ./spt, spt.
	Tool     string `yaml:"tool,omitempty"`
	Lsscsi   string `yaml:"lsscsi" validate:"nonzero"`
	Smartctl string `yaml:"smartctl" validate:"nonzero"`

	Timeout      time.Duration `yaml:"timeout" validate:"min=1"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"min=1"`
	// ProbeWorkers caps concurrent probe workers; 0 means one per drive.
	ProbeWorkers int `yaml:"probe_workers" validate:"min=0"`

	Discovery         string  `yaml:"discovery" validate:"nonzero"`
	IncludeEnclosures bool    `yaml:"include_enclosures"`
	PowerOnHours      bool    `yaml:"power_on_hours"`
	Session           Session `yaml:"session"`
	Filters           Filters `yaml:"filters"`

	TURRetries    uint64        `yaml:"tur_retries"`
	TURRetryDelay time.Duration `yaml:"tur_retry_delay"`
	SlotPolicy    string        `yaml:"slot_policy" validate:"nonzero"`

	Log     logging.Config `yaml:"log"`
	Journal string         `yaml:"journal"`
	Metrics string         `yaml:"metrics"`
	Cache   Cache          `yaml:"cache"`
}

type Session struct {
	Enabled bool `yaml:"enabled"`
	// StatusToken indexes the prompt's whitespace-separated tokens; negative
	// values count from the end.
	StatusToken int `yaml:"status_token"`
}

type Filters struct {
	Drives         []string `yaml:"drives,omitempty"`
	Exclude        []string `yaml:"exclude,omitempty"`
	parser.Filters `yaml:",inline"`
}

type Cache struct {
	Size int           `yaml:"size" validate:"min=1"`
	TTL  time.Duration `yaml:"ttl" validate:"min=1"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Lsscsi:            "lsscsi",
		Smartctl:          "smartctl",
		Timeout:           60 * time.Second,
		ProbeTimeout:      600 * time.Second,
		Discovery:         DiscoverySPT,
		IncludeEnclosures: true,
		Session:           Session{Enabled: true, StatusToken: -1},
		TURRetries:        3,
		TURRetryDelay:     time.Second,
		SlotPolicy:        "auto",
		Log:               logging.Config{Level: "info", File: logging.DefaultFile},
		Cache:             Cache{Size: cache.DefaultSize, TTL: cache.DefaultTTL},
	}
}

// Candidates lists the config files tried, in order, when no path is given.
func Candidates() []string {
	return []string{
		"/etc/sptinv/config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/sptinv/config.yaml"),
		"config.yaml",
	}
}

// Load reads path, or the first existing candidate when path is empty, over
// the defaults. No file at all is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Discovery != DiscoverySPT && c.Discovery != DiscoveryLsscsi {
		return fmt.Errorf("%w: discovery must be %q or %q, got %q", ErrInvalid, DiscoverySPT, DiscoveryLsscsi, c.Discovery)
	}
	if _, err := ses.PolicyByName(c.SlotPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
		}
	}
	return nil
}

// ResolveTool picks the spt binary: the configured path, then $SPT_PATH,
// then ./spt, then spt from PATH.
func (c *Config) ResolveTool() string {
	if c.Tool != "" {
		return c.Tool
	}
	if p := os.Getenv(ToolEnv); p != "" {
		return p
	}
	if fi, err := os.Stat("spt"); err == nil && !fi.IsDir() {
		return "./spt"
	}
	return "spt"
}
