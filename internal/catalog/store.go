package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainerrors "libracatalog/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Repository loads and persists the full item collection.
type Repository interface {
	Load(ctx context.Context) (*Collection, error)
	Save(ctx context.Context, coll *Collection) error
}

// FileStore keeps the catalog in a single semicolon-separated file.
// Loads are cached until the next Save or Invalidate; callers always receive
// a private copy.
type FileStore struct {
	path     string
	location *time.Location
	log      *zap.Logger
	tracer   trace.Tracer

	mu     sync.Mutex
	cached *Collection
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithLocation sets the time zone loan dates are read and written in.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *FileStore) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewFileStore creates a store for the catalog file at path.
func NewFileStore(path string, log *zap.Logger, opts ...StoreOption) *FileStore {
	s := &FileStore{
		path:     path,
		location: time.Local,
		log:      log,
		tracer:   otel.Tracer("libracatalog/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the catalog file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the catalog, reading the file only when nothing is cached.
func (s *FileStore) Load(ctx context.Context) (*Collection, error) {
	_, span := s.tracer.Start(ctx, "catalog.load",
		trace.WithAttributes(attribute.String("catalog.path", s.path)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return s.cached.Clone(), nil
	}

	coll, err := s.read()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}

	for _, item := range coll.Items {
		if !item.CheckInvariant() {
			s.log.Warn("Catalog row has inconsistent loan fields",
				zap.Int("id", item.ID),
				zap.Stringer("availability", item.Availability),
			)
		}
	}

	s.cached = coll
	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Int("items.loaded", len(coll.Items)),
	)
	s.log.Debug("Catalog loaded", zap.String("path", s.path), zap.Int("items", len(coll.Items)))
	return coll.Clone(), nil
}

func (s *FileStore) read() (*Collection, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domainerrors.StorageUnreadable(s.path, err)
	}
	defer f.Close()

	coll, err := decode(f, s.location)
	if err != nil {
		return nil, domainerrors.StorageUnreadable(s.path, err)
	}
	return coll, nil
}

// Save replaces the catalog file with coll. The file is written to a temporary
// sibling and renamed into place, so readers see either the old or the new
// contents. The cache is dropped whatever the outcome.
func (s *FileStore) Save(ctx context.Context, coll *Collection) error {
	_, span := s.tracer.Start(ctx, "catalog.save",
		trace.WithAttributes(
			attribute.String("catalog.path", s.path),
			attribute.Int("items.count", len(coll.Items)),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil

	if err := s.write(coll); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.log.Error("Failed to save catalog", zap.String("path", s.path), zap.Error(err))
		return domainerrors.StorageWrite(s.path, err)
	}
	return nil
}

func (s *FileStore) write(coll *Collection) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := encode(tmp, coll); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Invalidate drops the cached collection so the next Load reads the file.
func (s *FileStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
