package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/convert"
	"fileconv/internal/deps"
	"fileconv/internal/jobstore"
	"fileconv/internal/logging"
	"fileconv/internal/pipeline"
	"fileconv/internal/preflight"
	"fileconv/internal/publish"
	"fileconv/internal/queue"
	"fileconv/internal/recipes"
	"fileconv/internal/runner"
	"fileconv/internal/worker"
)

// Options configures worker process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Concurrency overrides worker.concurrency when positive.
	Concurrency int
	// SkipPreflight starts the consumer even when a required check fails.
	SkipPreflight bool
}

// Services holds everything a worker process wires at startup.
type Services struct {
	Config       *config.Config
	Logger       *slog.Logger
	Blobs        blobstore.Store
	Jobs         *jobstore.Store
	Queue        queue.Queue
	Resolver     *deps.Resolver
	Router       *convert.Router
	Registry     *recipes.Registry
	Publisher    *publish.Publisher
	Orchestrator *pipeline.Orchestrator
}

// OpenStores opens the object store and the job store layered on it.
func OpenStores(cfg *config.Config) (blobstore.Store, *jobstore.Store, error) {
	blobs, err := blobstore.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open object store: %w", err)
	}
	return blobs, jobstore.New(blobs, jobstore.WithTTL(cfg.JobTTL())), nil
}

// Open wires storage, the queue, the tool resolver, the recipe registry and
// the orchestrator. The registry is validated against the router so a recipe
// without a handler fails here rather than on its first job.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	blobs, jobs, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}
	q, err := queue.Open(ctx, cfg, logger)
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("open queue: %w", err)
	}

	s := &Services{Config: cfg, Logger: logger, Blobs: blobs, Jobs: jobs, Queue: q}

	s.Resolver = deps.NewResolverFromConfig(cfg, runner.New(cfg.ToolTimeout(), logger), logger)
	s.Router = convert.NewRouter(convert.NewToolkit(cfg, s.Resolver, logger))
	s.Registry, err = recipes.Default(s.Router)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Publisher = publish.New(blobs, jobs, logger)
	s.Orchestrator, err = pipeline.New(pipeline.Options{
		Jobs:      jobs,
		Blobs:     blobs,
		Registry:  s.Registry,
		Router:    s.Router,
		Publisher: s.Publisher,
		WorkRoot:  cfg.Paths.WorkDir,
		LocksDir:  cfg.LocksDir(),
		Logger:    logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the queue connection and the object store.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Queue != nil {
		errs = append(errs, s.Queue.Close())
	}
	if s.Blobs != nil {
		errs = append(errs, s.Blobs.Close())
	}
	return errors.Join(errs...)
}

// NewConsumer builds a queue consumer over the orchestrator. Leases are
// extended three times per lease window and expired leases are reclaimed
// once per window.
func (s *Services) NewConsumer(concurrency int) *worker.Consumer {
	if concurrency <= 0 {
		concurrency = s.Config.Worker.Concurrency
	}
	lease := s.Config.LeaseDuration()
	return worker.New(worker.Options{
		Queue:              s.Queue,
		Runner:             s.Orchestrator,
		Concurrency:        concurrency,
		ErrorRetryInterval: s.Config.ErrorRetryInterval(),
		HeartbeatInterval:  lease / 3,
		ReclaimInterval:    lease,
		Logger:             s.Logger,
	})
}

// Run starts the worker process and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("fileconv-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update fileconv.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "fileconv.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, r := range failed {
			logger.Error("preflight check failed",
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "run `fileconv doctor` for the full report"),
			)
		}
		if !opts.SkipPreflight {
			return fmt.Errorf("preflight: %d required check(s) failed", len(failed))
		}
	}

	services, err := Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open worker services", logging.Error(err))
		return err
	}
	defer services.Close()

	logDependencySnapshot(signalCtx, logger, services.Resolver)

	consumer := services.NewConsumer(opts.Concurrency)
	if err := consumer.Start(signalCtx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("fileconv worker shutting down",
		logging.String(logging.FieldEventType, "worker_stopping"),
	)
	consumer.Stop()
	status := consumer.Status()
	logger.Info("fileconv worker stopped",
		logging.String(logging.FieldEventType, "worker_stopped"),
		logging.Int64("processed", status.Processed),
		logging.Int64("retried", status.Retried),
	)
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "fileconv.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, resolver *deps.Resolver) {
	if logger == nil || resolver == nil {
		return
	}
	var available, missing []string
	for _, status := range deps.Report(ctx, resolver) {
		if status.Available {
			available = append(available, status.Name)
		} else {
			missing = append(missing, status.Name)
		}
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Strings("available", available),
		logging.Strings("missing", missing),
	)
}
