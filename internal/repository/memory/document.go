package memory

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/Karan-0412/nabha/internal/repository"
)

// Entry is the cached value for one key. Exported for gob snapshots.
type Entry struct {
	Data     []byte
	Revision int64
}

func init() {
	gob.Register(Entry{})
}

type Config struct {
	// SnapshotPath, when set, is loaded on open and written on Close.
	SnapshotPath string
}

type documentStore struct {
	cache *cache.Cache
	mu    sync.Mutex
	cfg   Config
}

// NewDocumentStore returns an in-process document store. Entries never expire.
func NewDocumentStore(cfg Config) (repository.DocumentStore, error) {
	s := &documentStore{
		cache: cache.New(cache.NoExpiration, 0),
		cfg:   cfg,
	}

	if cfg.SnapshotPath != "" {
		if err := s.cache.LoadFile(cfg.SnapshotPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", cfg.SnapshotPath, err)
		}
	}
	return s, nil
}

func (s *documentStore) Get(ctx context.Context, key string) (*repository.Document, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, repository.ErrDocumentNotFound
	}
	e := v.(Entry)
	return &repository.Document{
		Key:      key,
		Data:     append([]byte(nil), e.Data...),
		Revision: e.Revision,
	}, nil
}

func (s *documentStore) Put(ctx context.Context, key string, data []byte, expectedRevision int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if v, found := s.cache.Get(key); found {
		current = v.(Entry).Revision
	}
	if current != expectedRevision {
		return 0, repository.ErrRevisionConflict
	}

	next := current + 1
	s.cache.Set(key, Entry{Data: append([]byte(nil), data...), Revision: next}, cache.NoExpiration)
	return next, nil
}

func (s *documentStore) Close() error {
	if s.cfg.SnapshotPath == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.SaveFile(s.cfg.SnapshotPath); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", s.cfg.SnapshotPath, err)
	}
	return nil
}
