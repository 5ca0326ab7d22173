package testsupport

import (
	"context"
	"testing"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/fileutil"
	"fileconv/internal/jobstore"
	"fileconv/internal/recipes"
)

// MustOpenJobStore opens the configured object store and a job store on top
// of it. The object store is closed on cleanup.
func MustOpenJobStore(t testing.TB, cfg *config.Config) (*jobstore.Store, blobstore.Store) {
	t.Helper()
	blobs, err := blobstore.Open(cfg)
	if err != nil {
		t.Fatalf("open object store: %v", err)
	}
	t.Cleanup(func() { _ = blobs.Close() })
	return jobstore.New(blobs, jobstore.WithTTL(cfg.JobTTL())), blobs
}

// Upload is a file attached to a seeded job.
type Upload struct {
	Filename string
	Data     []byte
}

// SeedJob stores uploads under temp/<id>/uploads/ and creates a queued job.
func SeedJob(t testing.TB, jobs *jobstore.Store, blobs blobstore.Store, id, slug string, uploads ...Upload) *jobstore.Record {
	t.Helper()
	ctx := context.Background()
	inputs := make([]jobstore.Input, 0, len(uploads))
	for _, up := range uploads {
		key := jobstore.UploadsPrefix(id) + up.Filename
		_, ext := fileutil.SplitExt(up.Filename)
		contentType := recipes.MIMEByExtension(ext)
		if err := blobstore.PutBytes(ctx, blobs, key, up.Data, contentType); err != nil {
			t.Fatalf("seed upload %s: %v", up.Filename, err)
		}
		inputs = append(inputs, jobstore.Input{Key: key, Filename: up.Filename, ContentType: contentType})
	}
	record, err := jobs.Create(ctx, jobstore.Record{ID: id, ConverterSlug: slug, Inputs: inputs})
	if err != nil {
		t.Fatalf("seed job %s: %v", id, err)
	}
	return record
}
