package config

import (
	"errors"
	"os"
	"time"
)

// AgentConfig holds settings of the reporting agent.
type AgentConfig struct {
	ServerURL  string
	Secret     string
	DeviceID   string
	ShowName   string
	Interval   time.Duration
	BypassSame bool
	Insecure   bool
}

// LoadAgent reads agent settings from SLEEPY_* environment variables.
// The hostname is the default device id.
func LoadAgent() (*AgentConfig, error) {
	host, _ := os.Hostname()

	cfg := &AgentConfig{
		ServerURL: getEnv("SLEEPY_SERVER", "http://127.0.0.1:9010"),
		Secret:    getEnv("SLEEPY_SECRET", ""),
		DeviceID:  getEnv("SLEEPY_DEVICE_ID", host),
		ShowName:  getEnv("SLEEPY_DEVICE_NAME", ""),
	}

	var err error
	if cfg.Interval, err = getEnvDuration("SLEEPY_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.BypassSame, err = getEnvBool("SLEEPY_BYPASS_SAME", true); err != nil {
		return nil, err
	}
	if cfg.Insecure, err = getEnvBool("SLEEPY_INSECURE_SKIP_VERIFY", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AgentConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is empty")
	}
	if c.DeviceID == "" {
		return errors.New("device id is empty")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	return nil
}
