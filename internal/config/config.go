// Package config loads service settings from an optional YAML file and
// CODOLIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	codolio "github.com/RavensCloud/codolio-gofun"
)

// envPrefix is the prefix of every environment override, e.g.
// CODOLIO_SCRAPER_RENDER_MODE for scraper.render_mode.
const envPrefix = "CODOLIO"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type ScraperConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RenderMode        string        `mapstructure:"render_mode"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	LandmarkTimeout   time.Duration `mapstructure:"landmark_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	Proxy             string        `mapstructure:"proxy"`
	BlockResources    bool          `mapstructure:"block_resources"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("scraper.base_url", codolio.DefaultBaseURL)
	v.SetDefault("scraper.render_mode", string(codolio.RenderBrowser))
	v.SetDefault("scraper.navigation_timeout", 30*time.Second)
	v.SetDefault("scraper.landmark_timeout", 25*time.Second)
	v.SetDefault("scraper.settle_delay", 1500*time.Millisecond)
	v.SetDefault("scraper.proxy", "")
	v.SetDefault("scraper.block_resources", true)
	v.SetDefault("scraper.no_sandbox", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configPath when it is non-empty, then applies CODOLIO_*
// environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if strings.TrimSpace(c.Scraper.BaseURL) == "" {
		errs = append(errs, errors.New("scraper.base_url is required"))
	}
	if _, err := codolio.ParseRenderMode(c.Scraper.RenderMode); err != nil {
		errs = append(errs, fmt.Errorf("scraper.render_mode: %w", err))
	}
	if c.Scraper.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("scraper.navigation_timeout must be positive"))
	}
	if c.Scraper.LandmarkTimeout <= 0 {
		errs = append(errs, errors.New("scraper.landmark_timeout must be positive"))
	}
	if c.Scraper.SettleDelay < 0 {
		errs = append(errs, errors.New("scraper.settle_delay must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or console", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewScraper builds a Scraper from the scraper section.
func (c ScraperConfig) NewScraper() (*codolio.Scraper, error) {
	mode, err := codolio.ParseRenderMode(c.RenderMode)
	if err != nil {
		return nil, err
	}
	s := codolio.New().
		WithBaseURL(c.BaseURL).
		WithRenderMode(mode).
		WithNavigationTimeout(c.NavigationTimeout).
		WithLandmarkTimeout(c.LandmarkTimeout).
		WithSettleDelay(c.SettleDelay).
		WithResourceBlocking(c.BlockResources).
		WithNoSandbox(c.NoSandbox)
	if err := s.SetProxy(c.Proxy); err != nil {
		return nil, err
	}
	return s, nil
}
