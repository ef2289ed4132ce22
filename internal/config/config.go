package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Config struct {
	Bind           string
	Port           int
	CollectSeconds int
	CleanupDelay   time.Duration
	Verbose        bool
}

func Default() Config {
	return Config{
		Bind:           "0.0.0.0",
		Port:           8080,
		CollectSeconds: 120,
		CleanupDelay:   60 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.CollectSeconds < 1 {
		return fmt.Errorf("invalid collect window (must be at least 1 second): %d", c.CollectSeconds)
	}
	if c.CleanupDelay < 0 {
		return fmt.Errorf("invalid cleanup delay: %s", c.CleanupDelay)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
