package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"fileconv/internal/blobstore"
	"fileconv/internal/convert"
	"fileconv/internal/jobstore"
	"fileconv/internal/logging"
	"fileconv/internal/publish"
	"fileconv/internal/recipes"
	"fileconv/internal/services"
	"fileconv/internal/workspace"
)

// ErrJobBusy reports that another process on this host holds the job lock.
var ErrJobBusy = errors.New("job is being processed elsewhere")

// Options wires an Orchestrator.
type Options struct {
	Jobs      *jobstore.Store
	Blobs     blobstore.Store
	Registry  *recipes.Registry
	Router    *convert.Router
	Publisher *publish.Publisher
	WorkRoot  string
	LocksDir  string
	Logger    *slog.Logger
}

// Orchestrator executes jobs. It is safe for concurrent use by several
// workers as long as they run different job ids.
type Orchestrator struct {
	jobs      *jobstore.Store
	blobs     blobstore.Store
	registry  *recipes.Registry
	router    *convert.Router
	publisher *publish.Publisher
	workRoot  string
	locksDir  string
	logger    *slog.Logger
}

// New validates opts and builds an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Jobs == nil || opts.Blobs == nil || opts.Registry == nil || opts.Router == nil || opts.Publisher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "jobs, blobs, registry, router and publisher are required", nil)
	}
	if opts.LocksDir != "" {
		if err := os.MkdirAll(opts.LocksDir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "create locks directory", err)
		}
	}
	return &Orchestrator{
		jobs:      opts.Jobs,
		blobs:     opts.Blobs,
		registry:  opts.Registry,
		router:    opts.Router,
		publisher: opts.Publisher,
		workRoot:  opts.WorkRoot,
		locksDir:  opts.LocksDir,
		logger:    logging.NewComponentLogger(opts.Logger, "pipeline"),
	}, nil
}

// Run processes jobID. It returns nil once the job is in a terminal state,
// including when the conversion itself failed and that failure was recorded.
// A non-nil error means the outcome could not be persisted and the delivery
// should be retried, except for services.ErrNotFound and ErrJobBusy.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, o.logger)

	unlock, err := o.lock(jobID)
	if err != nil {
		return err
	}
	defer unlock()

	record, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil {
		logger.Error("job record not found",
			logging.String(logging.FieldEventType, "job_missing"),
			logging.String(logging.FieldErrorHint, "the job expired or was never created"),
		)
		return services.Wrap(services.ErrNotFound, "pipeline", "load", "Job not found.", nil)
	}
	if record.Status.IsTerminal() {
		logger.Info("job already finished; skipping",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String("status", string(record.Status)),
		)
		return nil
	}

	ctx = services.WithRecipe(ctx, record.ConverterSlug)
	logger = logging.WithContext(ctx, o.logger)

	recipe, ok := o.registry.Lookup(record.ConverterSlug)
	if !ok {
		return o.fail(ctx, logger, jobID, services.Wrap(services.ErrUnsupportedConverter, "pipeline", "lookup",
			fmt.Sprintf("Unsupported converter: %s.", record.ConverterSlug), nil))
	}
	if err := recipe.CheckInputCount(len(record.Inputs)); err != nil {
		return o.fail(ctx, logger, jobID, err)
	}

	resuming := record.Status == jobstore.StatusProcessing
	if _, err := o.jobs.Update(ctx, jobID, jobstore.Patch{
		Status:     jobstore.StatusPtr(jobstore.StatusProcessing),
		ClearError: true,
		Outputs:    []jobstore.Output{},
	}); err != nil {
		return err
	}
	if resuming {
		if n, err := o.publisher.Reset(ctx, jobID); err == nil && n > 0 {
			logger.Info("removed artifacts of interrupted attempt", logging.Int("count", n))
		}
	}

	started := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Int("inputs", len(record.Inputs)),
		logging.Bool("resumed", resuming),
	)

	outputs, runErr := o.execute(ctx, jobID, recipe, record.Inputs)
	if runErr != nil {
		if ctx.Err() != nil {
			// Shutdown: leave the job in processing for redelivery.
			return ctx.Err()
		}
		return o.fail(ctx, logger, jobID, runErr)
	}

	if _, err := o.jobs.Update(ctx, jobID, jobstore.Patch{Status: jobstore.StatusPtr(jobstore.StatusCompleted)}); err != nil {
		return err
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("outputs", outputs),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, jobID string, recipe recipes.Recipe, uploads []jobstore.Input) (int, error) {
	ws, err := workspace.Acquire(o.workRoot, jobID)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger), "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("path", ws.Root),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scratch files remain on disk"),
			)
		}
	}()

	inputs, err := o.stageInputs(ctx, recipe, uploads, ws)
	if err != nil {
		return 0, err
	}

	published := 0
	publishAll := func(files []string) error {
		for _, path := range files {
			if _, err := o.publisher.Publish(ctx, jobID, path, filepath.Base(path)); err != nil {
				return err
			}
			published++
		}
		return nil
	}

	if batch, ok := o.router.Batch(recipe.Family); ok {
		files, err := batch.ConvertAll(ctx, inputs, ws.OutputDir)
		if err != nil {
			return 0, err
		}
		if err := publishAll(files); err != nil {
			return published, err
		}
	} else {
		handler, ok := o.router.Handler(recipe.Family)
		if !ok {
			return 0, services.Wrap(services.ErrUnsupportedConverter, "pipeline", "route",
				fmt.Sprintf("Unsupported converter: %s.", recipe.Slug), nil)
		}
		// Each input's artifacts are visible on the record before the next
		// input starts.
		for _, in := range inputs {
			files, err := handler.Convert(ctx, in, ws.OutputDir)
			if err != nil {
				return published, err
			}
			if err := publishAll(files); err != nil {
				return published, err
			}
		}
	}

	if published == 0 {
		return 0, services.Wrap(services.ErrValidation, "pipeline", "convert", "The conversion produced no output.", nil)
	}
	return published, nil
}

// fail records err on the job. The returned error is non-nil only when the
// failure itself could not be stored.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, jobID string, err error) error {
	message := services.FailureMessage(err)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("error_kind", services.Kind(err)),
		logging.String("error_message", message),
		logging.Error(err),
	)
	if _, updateErr := o.jobs.Update(ctx, jobID, jobstore.Patch{
		Status: jobstore.StatusPtr(jobstore.StatusFailed),
		Error:  jobstore.StringPtr(message),
	}); updateErr != nil {
		logger.Error("failed to persist job failure", logging.Error(updateErr))
		return updateErr
	}
	return nil
}

func (o *Orchestrator) lock(jobID string) (func(), error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "lock", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	if o.locksDir == "" {
		return func() {}, nil
	}
	fl := flock.New(filepath.Join(o.locksDir, jobID+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "pipeline", "lock", "acquire job lock", err)
	}
	if !locked {
		return nil, ErrJobBusy
	}
	return func() { _ = fl.Unlock() }, nil
}
