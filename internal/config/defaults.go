package config

const (
	defaultConfigPath          = "~/.config/fileconv/config.toml"
	defaultWorkDir             = "~/.local/share/fileconv/work"
	defaultStateDir            = "~/.local/share/fileconv/state"
	defaultLogDir              = "~/.local/share/fileconv/logs"
	defaultStorageRoot         = "~/.local/share/fileconv/objects"
	defaultStorageDB           = "~/.local/share/fileconv/objects.db"
	defaultJobTTLHours         = 24
	defaultQueueName           = "converter-jobs"
	defaultRedisURL            = "redis://127.0.0.1:6379/0"
	defaultBlockTimeout        = 5
	defaultLeaseSeconds        = 900
	defaultConcurrency         = 2
	defaultToolTimeoutSeconds  = 600
	defaultProbeTimeoutSeconds = 5
	defaultErrorRetryInterval  = 10
	defaultMinFreeDiskMiB      = 512
	defaultOCRLanguage         = "eng"
	defaultOCRDPI              = 300
	defaultOCRCloudTimeout     = 180
	defaultTranslateURL        = "http://localhost:5000"
	defaultTranslateTarget     = "en"
	defaultTranslateTimeout    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Storage backends.
const (
	StorageFS     = "fs"
	StorageSQLite = "sqlite"
)

// Queue backends.
const (
	QueueRedis  = "redis"
	QueueMemory = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Storage: Storage{
			Backend:     StorageFS,
			Root:        defaultStorageRoot,
			DBPath:      defaultStorageDB,
			JobTTLHours: defaultJobTTLHours,
		},
		Queue: Queue{
			Backend:             QueueRedis,
			RedisURL:            defaultRedisURL,
			Name:                defaultQueueName,
			BlockTimeoutSeconds: defaultBlockTimeout,
			LeaseSeconds:        defaultLeaseSeconds,
		},
		Worker: Worker{
			Concurrency:         defaultConcurrency,
			ToolTimeoutSeconds:  defaultToolTimeoutSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			MinFreeDiskMiB:      defaultMinFreeDiskMiB,
		},
		OCR: OCR{
			Language:     defaultOCRLanguage,
			DPI:          defaultOCRDPI,
			CloudTimeout: defaultOCRCloudTimeout,
		},
		Translate: Translate{
			URL:            defaultTranslateURL,
			TargetLanguage: defaultTranslateTarget,
			TimeoutSeconds: defaultTranslateTimeout,
		},
		Tools: map[string]string{},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
