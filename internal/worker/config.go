package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the background task worker.
type Config struct {
	// PollInterval is how often the worker looks for due tasks.
	// Default: 30 seconds
	PollInterval time.Duration

	// BatchSize is the maximum number of due tasks taken per poll.
	// Default: 10
	BatchSize int

	// JobTimeout bounds a single handler invocation.
	// Default: 5 minutes
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for the in-flight task.
	// Default: 30 seconds
	ShutdownTimeout time.Duration

	// StaleTaskThreshold is how long a task may sit in Processing before
	// Start puts it back in the queue. Must exceed JobTimeout.
	// Default: 10 minutes
	StaleTaskThreshold time.Duration
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:       30 * time.Second,
		BatchSize:          10,
		JobTimeout:         5 * time.Minute,
		ShutdownTimeout:    30 * time.Second,
		StaleTaskThreshold: 10 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	}
	if c.BatchSize < 1 || c.BatchSize > 1000 {
		return fmt.Errorf("batch size must be between 1 and 1000, got %d", c.BatchSize)
	}
	if c.JobTimeout < time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleTaskThreshold <= c.JobTimeout {
		return fmt.Errorf("stale task threshold (%v) must exceed job timeout (%v)", c.StaleTaskThreshold, c.JobTimeout)
	}
	return nil
}
