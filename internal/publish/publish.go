package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fileconv/internal/blobstore"
	"fileconv/internal/fileutil"
	"fileconv/internal/jobstore"
	"fileconv/internal/logging"
	"fileconv/internal/recipes"
	"fileconv/internal/services"
)

// Publisher stores artifacts under temp/<jobId>/artifacts/.
type Publisher struct {
	blobs  blobstore.Store
	jobs   *jobstore.Store
	logger *slog.Logger
}

// New constructs a Publisher.
func New(blobs blobstore.Store, jobs *jobstore.Store, logger *slog.Logger) *Publisher {
	return &Publisher{blobs: blobs, jobs: jobs, logger: logging.NewComponentLogger(logger, "publish")}
}

// Publish uploads localPath as filename and appends it to the job outputs.
// An empty filename uses the base name of localPath.
func (p *Publisher) Publish(ctx context.Context, jobID, localPath, filename string) (jobstore.Output, error) {
	if strings.TrimSpace(filename) == "" {
		filename = filepath.Base(localPath)
	}
	filename = fileutil.SanitizeFileName(filename)

	info, err := os.Stat(localPath)
	if err != nil || !info.Mode().IsRegular() {
		return jobstore.Output{}, services.Wrap(services.ErrStorage, "publish", filename,
			fmt.Sprintf("artifact %s was not produced", filename), err)
	}

	_, ext := fileutil.SplitExt(filename)
	key := jobstore.ArtifactKey(jobID, filename)
	if err := blobstore.Upload(ctx, p.blobs, key, localPath, recipes.MIMEByExtension(ext)); err != nil {
		return jobstore.Output{}, err
	}

	output := jobstore.Output{Key: key, Filename: filename}
	if _, err := p.jobs.AppendOutput(ctx, jobID, output); err != nil {
		if delErr := p.blobs.Delete(ctx, key); delErr != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "orphaned artifact left in storage", "artifact_orphaned",
				logging.String("key", key),
				logging.Error(delErr),
				logging.String(logging.FieldImpact, "storage holds an artifact no job references"),
			)
		}
		return jobstore.Output{}, err
	}

	logging.WithContext(ctx, p.logger).Info("artifact published",
		logging.String(logging.FieldEventType, "artifact_published"),
		logging.String("key", key),
		logging.Int64("bytes", info.Size()),
	)
	return output, nil
}

// Reset removes artifacts left by an interrupted earlier attempt.
func (p *Publisher) Reset(ctx context.Context, jobID string) (int, error) {
	return p.blobs.DeleteByPrefix(ctx, jobstore.Prefix(jobID)+"artifacts/")
}
