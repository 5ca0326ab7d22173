package jobstore

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fileconv/internal/blobstore"
	"fileconv/internal/services"
)

//go:embed job.schema.json
var recordSchemaJSON []byte

// DefaultTTL is applied to new records when the caller does not supply one.
const DefaultTTL = 24 * time.Hour

const contentTypeJSON = "application/json; charset=utf-8"

var compileRecordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("job.schema.json", bytes.NewReader(recordSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add job schema: %w", err)
	}
	return compiler.Compile("job.schema.json")
})

// Store persists job records as JSON documents in a blob store.
type Store struct {
	blobs blobstore.Store
	ttl   time.Duration
	now   func() time.Time

	// mu serializes read-modify-write updates issued from this process.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the retention window stamped on new records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a job store over blobs.
func New(blobs blobstore.Store, opts ...Option) *Store {
	s := &Store{blobs: blobs, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a new record. Missing timestamps, status, and outputs are
// defaulted; ExpiresAt defaults to CreatedAt plus the store TTL.
func (s *Store) Create(ctx context.Context, record Record) (*Record, error) {
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return nil, services.Wrap(services.ErrValidation, "jobstore", "create", "job id is required", nil)
	}
	if strings.TrimSpace(record.ConverterSlug) == "" {
		return nil, services.Wrap(services.ErrValidation, "jobstore", "create", "converter slug is required", nil)
	}
	now := s.now().UTC()
	if record.Status == "" {
		record.Status = StatusQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = now.Add(s.ttl)
	}
	record.UpdatedAt = now
	if record.Inputs == nil {
		record.Inputs = []Input{}
	}
	if record.Outputs == nil {
		record.Outputs = []Output{}
	}
	if err := s.write(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Get loads a record. A missing record yields (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := blobstore.ReadAll(ctx, s.blobs, Key(id))
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Update applies patch to the stored record and stamps UpdatedAt. CreatedAt
// is never changed; ExpiresAt and Outputs are kept unless the patch supplies
// them. Unknown ids fail with services.ErrNotFound and status regressions
// with services.ErrValidation.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	return s.mutate(ctx, id, "update", func(*Record) Patch { return patch })
}

// AppendOutput adds one output to the record and persists it immediately.
func (s *Store) AppendOutput(ctx context.Context, id string, output Output) (*Record, error) {
	return s.mutate(ctx, id, "append-output", func(current *Record) Patch {
		return Patch{Outputs: append(append([]Output{}, current.Outputs...), output)}
	})
}

func (s *Store) mutate(ctx context.Context, id, op string, build func(*Record) Patch) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, services.Wrap(services.ErrNotFound, "jobstore", op, "Job not found.", nil)
	}
	patch := build(current)

	next := *current
	if patch.Status != nil {
		if !current.Status.CanTransition(*patch.Status) {
			return nil, services.Wrap(services.ErrValidation, "jobstore", op,
				fmt.Sprintf("job %s cannot move from %s to %s", id, current.Status, *patch.Status), nil)
		}
		next.Status = *patch.Status
	}
	switch {
	case patch.ClearError:
		next.Error = nil
	case patch.Error != nil:
		msg := *patch.Error
		next.Error = &msg
	}
	if patch.Outputs != nil {
		next.Outputs = append([]Output{}, patch.Outputs...)
	}
	if patch.ExpiresAt != nil {
		next.ExpiresAt = patch.ExpiresAt.UTC()
	}
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now().UTC()

	if err := s.write(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) write(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return services.Wrap(services.ErrStorage, "jobstore", "encode", record.ID, err)
	}
	return blobstore.PutBytes(ctx, s.blobs, Key(record.ID), data, contentTypeJSON)
}

func decodeRecord(data []byte) (*Record, error) {
	schema, err := compileRecordSchema()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobstore", "schema", "compile job schema", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, services.Wrap(services.ErrStorage, "jobstore", "decode", "job record is not valid JSON", err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobstore", "decode", "job record does not match schema", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, services.Wrap(services.ErrStorage, "jobstore", "decode", "job record", err)
	}
	if record.Outputs == nil {
		record.Outputs = []Output{}
	}
	return &record, nil
}
