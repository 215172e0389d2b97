package cache

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
)

//go:embed schema.json
var schemaJSON []byte

const (
	schemaURL      = "chromaflow-cache.schema.json"
	formatVersion  = 1
	lockRetryDelay = 25 * time.Millisecond
)

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("cache schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		panic(fmt.Sprintf("cache schema: %v", err))
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("cache schema: %v", err))
	}
	return schema
}

// ErrInvalid reports a cache file that exists but fails validation.
var ErrInvalid = errors.New("cache file invalid")

type envelope struct {
	Version int            `json:"version"`
	SavedAt string         `json:"savedAt,omitempty"`
	Items   []items.Record `json:"items"`
}

// File is a JSON cache guarded by an advisory lock so the CLI and daemon can
// share it. A File with an empty path stores nothing.
type File struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time
}

// NewFile returns a cache stored at path.
func NewFile(path string, logger *slog.Logger) *File {
	c := &File{
		path:   path,
		logger: logging.NewComponentLogger(logger, "cache"),
		now:    time.Now,
	}
	if path != "" {
		c.lock = flock.New(path + ".lock")
	}
	return c
}

// Path returns the cache location.
func (c *File) Path() string { return c.path }

// Get returns the cached records. ok is false when nothing is cached.
func (c *File) Get(ctx context.Context) (records []items.Record, ok bool, err error) {
	if c == nil || c.path == "" {
		return nil, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, false, fmt.Errorf("create cache directory: %w", err)
	}
	locked, err := c.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, false, fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return nil, false, fmt.Errorf("lock cache: not acquired")
	}
	defer func() { _ = c.lock.Unlock() }()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := compiledSchema.Validate(inst); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.logger.Debug("loaded item cache",
		logging.Int("item_count", len(env.Items)),
		logging.String("path", c.path))
	return env.Items, true, nil
}

// Set replaces the cached records.
func (c *File) Set(ctx context.Context, records []items.Record) error {
	if c == nil || c.path == "" {
		return nil
	}
	if records == nil {
		records = []items.Record{}
	}
	data, err := json.MarshalIndent(envelope{
		Version: formatVersion,
		SavedAt: c.now().UTC().Format(time.RFC3339Nano),
		Items:   records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	locked, err := c.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: not acquired")
	}
	defer func() { _ = c.lock.Unlock() }()

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
