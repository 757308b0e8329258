package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	Listen      string   `yaml:"listen" toml:"listen"`
	Secret      string   `yaml:"secret" toml:"secret"`
	SecretCost  int      `yaml:"secret_cost" toml:"secret_cost"`
	JWTSecret   string   `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTL    Duration `yaml:"token_ttl" toml:"token_ttl"`
	TLSCert     string   `yaml:"tls_cert" toml:"tls_cert"`
	TLSKey      string   `yaml:"tls_key" toml:"tls_key"`
	Debug       bool     `yaml:"debug" toml:"debug"`
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
	Timezone    string   `yaml:"timezone" toml:"timezone"`
	Metrics     bool     `yaml:"metrics" toml:"metrics"`

	Heartbeat  Duration `yaml:"heartbeat" toml:"heartbeat"`
	DeviceTTL  Duration `yaml:"device_ttl" toml:"device_ttl"`
	LocalAgent bool     `yaml:"local_agent" toml:"local_agent"`

	Page   PageConfig   `yaml:"page" toml:"page"`
	Status StatusConfig `yaml:"status" toml:"status"`
}

type PageConfig struct {
	Name       string `yaml:"name" toml:"name"`
	Title      string `yaml:"title" toml:"title"`
	Desc       string `yaml:"desc" toml:"desc"`
	Favicon    string `yaml:"favicon" toml:"favicon"`
	Background string `yaml:"background" toml:"background"`
	Theme      string `yaml:"theme" toml:"theme"`
}

type StatusConfig struct {
	Default         int                       `yaml:"default" toml:"default"`
	RefreshInterval int                       `yaml:"refresh_interval" toml:"refresh_interval"`
	NotUsing        string                    `yaml:"not_using" toml:"not_using"`
	Sorted          bool                      `yaml:"sorted" toml:"sorted"`
	UsingFirst      bool                      `yaml:"using_first" toml:"using_first"`
	List            []models.StatusDefinition `yaml:"status_list" toml:"status_list"`
}

// Duration accepts Go duration strings ("30s") in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:9010",
		SecretCost:  bcrypt.DefaultCost,
		TokenTTL:    Duration{24 * time.Hour},
		CORSOrigins: []string{"*"},
		Timezone:    "Asia/Shanghai",
		Metrics:     true,
		Heartbeat:   Duration{30 * time.Second},
		Page: PageConfig{
			Name:  "User",
			Title: "Sleepy",
			Desc:  "Are you sleeping?",
			Theme: "default",
		},
		Status: StatusConfig{
			RefreshInterval: 5000,
			NotUsing:        "Not using",
			List: []models.StatusDefinition{
				{ID: 0, Name: "Awake", Color: "awake", Icon: "☀", Description: "Currently online."},
				{ID: 1, Name: "Asleep", Color: "sleeping", Icon: "☾", Description: "Gone to bed, see you tomorrow."},
			},
		},
	}
}

// Load builds the configuration from defaults, then the config file at path
// (or $SLEEPY_CONFIG), then SLEEPY_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("SLEEPY_CONFIG", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.Secret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// A status list in the file replaces the default one instead of being
	// merged into it.
	defaults := c.Status.List
	c.Status.List = nil

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, c)
	case ".toml":
		err = toml.Unmarshal(b, c)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(c.Status.List) == 0 {
		c.Status.List = defaults
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Listen = getEnv("SLEEPY_LISTEN", c.Listen)
	c.Secret = getEnv("SLEEPY_SECRET", c.Secret)
	c.JWTSecret = getEnv("SLEEPY_JWT_SECRET", c.JWTSecret)
	c.TLSCert = getEnv("SLEEPY_TLS_CERT", c.TLSCert)
	c.TLSKey = getEnv("SLEEPY_TLS_KEY", c.TLSKey)
	c.Timezone = getEnv("SLEEPY_TIMEZONE", c.Timezone)
	if origins := getEnv("SLEEPY_CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}

	var err error
	if c.Debug, err = getEnvBool("SLEEPY_DEBUG", c.Debug); err != nil {
		return err
	}
	if c.Metrics, err = getEnvBool("SLEEPY_METRICS", c.Metrics); err != nil {
		return err
	}
	if c.LocalAgent, err = getEnvBool("SLEEPY_LOCAL_AGENT", c.LocalAgent); err != nil {
		return err
	}
	if c.Heartbeat.Duration, err = getEnvDuration("SLEEPY_HEARTBEAT", c.Heartbeat.Duration); err != nil {
		return err
	}
	if c.DeviceTTL.Duration, err = getEnvDuration("SLEEPY_DEVICE_TTL", c.DeviceTTL.Duration); err != nil {
		return err
	}
	return nil
}

// Validate reports the first problem that would keep the server from
// starting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}
	if c.Secret == "" {
		return errors.New("secret is empty, set SLEEPY_SECRET or secret in the config file")
	}
	if len(c.Status.List) == 0 {
		return errors.New("status.status_list is empty")
	}
	for i, st := range c.Status.List {
		if st.ID != i {
			return fmt.Errorf("status.status_list[%d] has id %d, ids must match their position", i, st.ID)
		}
	}
	if c.Status.Default < 0 || c.Status.Default >= len(c.Status.List) {
		return fmt.Errorf("status.default %d is out of range", c.Status.Default)
	}
	if c.Heartbeat.Duration <= 0 {
		return errors.New("heartbeat must be positive")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Meta is the public site metadata derived from the configuration.
func (c *Config) Meta(version string) models.Meta {
	return models.Meta{
		Version:  version,
		Timezone: c.Timezone,
		Page: models.PageMeta{
			Name:       c.Page.Name,
			Title:      c.Page.Title,
			Desc:       c.Page.Desc,
			Favicon:    c.Page.Favicon,
			Background: c.Page.Background,
			Theme:      c.Page.Theme,
		},
		Status: models.StatusMeta{
			RefreshInterval: c.Status.RefreshInterval,
			NotUsing:        c.Status.NotUsing,
			Sorted:          c.Status.Sorted,
			UsingFirst:      c.Status.UsingFirst,
		},
		Metrics: c.Metrics,
	}
}
