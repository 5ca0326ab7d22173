package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageFS:
		if strings.TrimSpace(c.Storage.Root) == "" {
			return errors.New("storage.root must be set for the fs backend")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.DBPath) == "" {
			return errors.New("storage.db_path must be set for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want fs or sqlite)", c.Storage.Backend)
	}
	if c.Storage.JobTTLHours <= 0 {
		return errors.New("storage.job_ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case QueueMemory:
	case QueueRedis:
		if _, err := url.Parse(c.Queue.RedisURL); err != nil {
			return fmt.Errorf("queue.redis_url: %w", err)
		}
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (want redis or memory)", c.Queue.Backend)
	}
	if c.Queue.Name == "" {
		return errors.New("queue.name must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be positive")
	}
	if c.Worker.ToolTimeoutSeconds <= 0 {
		return errors.New("worker.tool_timeout_seconds must be positive")
	}
	if c.Worker.ProbeTimeoutSeconds <= 0 {
		return errors.New("worker.probe_timeout_seconds must be positive")
	}
	if c.Worker.ProbeTimeoutSeconds > c.Worker.ToolTimeoutSeconds {
		return errors.New("worker.probe_timeout_seconds must not exceed worker.tool_timeout_seconds")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	for name, raw := range map[string]string{
		"ocr.cloud_url": c.OCR.CloudURL,
		"translate.url": c.Translate.URL,
	} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s: unsupported scheme %q", name, parsed.Scheme)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
