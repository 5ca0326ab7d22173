package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeWorker()
	c.normalizeOCR()
	c.normalizeTranslate()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFS
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		c.Storage.Root = defaultStorageRoot
	}
	if c.Storage.Root, err = expandPath(c.Storage.Root); err != nil {
		return fmt.Errorf("storage.root: %w", err)
	}
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		c.Storage.DBPath = defaultStorageDB
	}
	if c.Storage.DBPath, err = expandPath(c.Storage.DBPath); err != nil {
		return fmt.Errorf("storage.db_path: %w", err)
	}
	if c.Storage.JobTTLHours <= 0 {
		c.Storage.JobTTLHours = defaultJobTTLHours
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	if c.Queue.Backend == "" {
		c.Queue.Backend = QueueRedis
	}
	if value, ok := os.LookupEnv("REDIS_URL"); ok && strings.TrimSpace(value) != "" {
		c.Queue.RedisURL = strings.TrimSpace(value)
	}
	c.Queue.RedisURL = strings.TrimSpace(c.Queue.RedisURL)
	if c.Queue.RedisURL == "" {
		c.Queue.RedisURL = defaultRedisURL
	}
	c.Queue.Name = strings.TrimSpace(c.Queue.Name)
	if c.Queue.Name == "" {
		c.Queue.Name = defaultQueueName
	}
	if c.Queue.BlockTimeoutSeconds <= 0 {
		c.Queue.BlockTimeoutSeconds = defaultBlockTimeout
	}
	if c.Queue.LeaseSeconds <= 0 {
		c.Queue.LeaseSeconds = defaultLeaseSeconds
	}
}

func (c *Config) normalizeWorker() {
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = defaultConcurrency
	}
	if c.Worker.ToolTimeoutSeconds <= 0 {
		c.Worker.ToolTimeoutSeconds = defaultToolTimeoutSeconds
	}
	if c.Worker.ProbeTimeoutSeconds <= 0 {
		c.Worker.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Worker.ErrorRetryInterval <= 0 {
		c.Worker.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Worker.MinFreeDiskMiB < 0 {
		c.Worker.MinFreeDiskMiB = 0
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = defaultOCRDPI
	}
	if c.OCR.CloudTimeout <= 0 {
		c.OCR.CloudTimeout = defaultOCRCloudTimeout
	}
	if c.OCR.CloudURL == "" {
		if value, ok := os.LookupEnv("OCR_CLOUD_URL"); ok {
			c.OCR.CloudURL = value
		}
	}
	if c.OCR.CloudAPIKey == "" {
		if value, ok := os.LookupEnv("OCR_CLOUD_API_KEY"); ok {
			c.OCR.CloudAPIKey = value
		}
	}
	c.OCR.CloudURL = strings.TrimRight(strings.TrimSpace(c.OCR.CloudURL), "/")
	c.OCR.CloudAPIKey = strings.TrimSpace(c.OCR.CloudAPIKey)
}

func (c *Config) normalizeTranslate() {
	if value, ok := os.LookupEnv("LIBRETRANSLATE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Translate.URL = value
	}
	c.Translate.URL = strings.TrimRight(strings.TrimSpace(c.Translate.URL), "/")
	if c.Translate.URL == "" {
		c.Translate.URL = defaultTranslateURL
	}
	if c.Translate.APIKey == "" {
		if value, ok := os.LookupEnv("LIBRETRANSLATE_API_KEY"); ok {
			c.Translate.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translate.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translate.TargetLanguage))
	if c.Translate.TargetLanguage == "" {
		c.Translate.TargetLanguage = defaultTranslateTarget
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeout
	}
}

func (c *Config) normalizeTools() {
	normalized := make(map[string]string, len(c.Tools))
	for capability, command := range c.Tools {
		key := strings.ToLower(strings.TrimSpace(capability))
		value := strings.TrimSpace(command)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	c.Tools = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
