package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// StorageKey is the blob key holding the dashboard collection.
const StorageKey = "dashboard_data"

// DashboardStore is the persistence boundary of the designer.
type DashboardStore interface {
	List(ctx context.Context) ([]Dashboard, error)
	// Get returns the dashboard with id. An empty id selects the most recently
	// stored entry.
	Get(ctx context.Context, id string) (Dashboard, error)
	// Save assigns an id when missing and replaces or appends the entry.
	Save(ctx context.Context, dashboard *Dashboard) error
	Delete(ctx context.Context, id string) error
}

// CollectionStore keeps every dashboard in one JSON array stored under a single
// blob key. Writes are last-write-wins.
type CollectionStore struct {
	blobs     BlobStore
	key       string
	logger    *zap.Logger
	ids       IDGenerator
	validator ConfigValidator
	mu        sync.Mutex
}

// CollectionStoreOption customizes a CollectionStore.
type CollectionStoreOption func(*CollectionStore)

// WithStoreKey overrides the blob key.
func WithStoreKey(key string) CollectionStoreOption {
	return func(s *CollectionStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithStoreLogger sets the logger used to report malformed documents.
func WithStoreLogger(logger *zap.Logger) CollectionStoreOption {
	return func(s *CollectionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreIDGenerator replaces the uuid generator.
func WithStoreIDGenerator(ids IDGenerator) CollectionStoreOption {
	return func(s *CollectionStore) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithStoreValidator sets the widget config validator run on save.
func WithStoreValidator(v ConfigValidator) CollectionStoreOption {
	return func(s *CollectionStore) {
		if v != nil {
			s.validator = v
		}
	}
}

// NewCollectionStore builds a store on top of blobs.
func NewCollectionStore(blobs BlobStore, opts ...CollectionStoreOption) *CollectionStore {
	if blobs == nil {
		blobs = NewMemoryBlobStore()
	}
	s := &CollectionStore{
		blobs:     blobs,
		key:       StorageKey,
		logger:    zap.NewNop(),
		ids:       uuidGenerator,
		validator: noopConfigValidator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every stored dashboard in storage order.
func (s *CollectionStore) List(ctx context.Context) ([]Dashboard, error) {
	return s.load(ctx)
}

// Get returns the dashboard with id, or the last stored one when id is empty.
func (s *CollectionStore) Get(ctx context.Context, id string) (Dashboard, error) {
	list, err := s.load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	if id == "" {
		if len(list) == 0 {
			return Dashboard{}, ErrDashboardNotFound
		}
		return list[len(list)-1], nil
	}
	for _, d := range list {
		if d.ID == id {
			return d, nil
		}
	}
	return Dashboard{}, fmt.Errorf("%w: %s", ErrDashboardNotFound, id)
}

// Save writes the full collection back with dashboard replaced or appended.
func (s *CollectionStore) Save(ctx context.Context, dashboard *Dashboard) error {
	if dashboard == nil {
		return errors.New("dashboard: dashboard is required")
	}
	for i := range dashboard.Widgets {
		if dashboard.Widgets[i].ID == "" {
			dashboard.Widgets[i].ID = s.ids()
		}
	}
	if err := dashboard.Validate(); err != nil {
		return err
	}
	for _, w := range dashboard.Widgets {
		if err := s.validator.ValidateWidget(w); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	if dashboard.ID == "" {
		dashboard.ID = s.ids()
	}
	if dashboard.Widgets == nil {
		dashboard.Widgets = []Widget{}
	}
	replaced := false
	for i := range list {
		if list[i].ID == dashboard.ID {
			list[i] = dashboard.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, dashboard.Clone())
	}
	return s.write(ctx, list)
}

// Delete removes the dashboard with id. Unknown ids leave storage untouched.
func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("dashboard: dashboard id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			return s.write(ctx, list)
		}
	}
	return nil
}

func (s *CollectionStore) load(ctx context.Context) ([]Dashboard, error) {
	data, err := s.blobs.Read(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("dashboard: load collection: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Dashboard{}, nil
	}
	var list []Dashboard
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("stored dashboards are malformed, treating collection as empty",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return []Dashboard{}, nil
	}
	return list, nil
}

func (s *CollectionStore) write(ctx context.Context, list []Dashboard) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("dashboard: encode collection: %w", err)
	}
	if err := s.blobs.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("dashboard: store collection: %w", err)
	}
	return nil
}
