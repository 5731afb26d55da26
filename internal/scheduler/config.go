package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Config struct {
	RunInterval time.Duration
	BatchSize   int
	RetryDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 24 * time.Hour
	}
	return c
}
