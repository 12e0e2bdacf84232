package repository

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned by Get for a key that was never written.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRevisionConflict is returned by Put when the stored revision differs from the expected one.
	ErrRevisionConflict = errors.New("document revision conflict")
)

// Document is one persisted JSON blob with its revision counter.
type Document struct {
	Key      string
	Data     []byte
	Revision int64
}

// All repository interfaces in one file
type (
	// DocumentStore persists whole documents under fixed keys.
	//
	// Put is a compare-and-swap: it succeeds only if the current revision equals
	// expectedRevision, where 0 means the key must not exist yet. On success it
	// returns the new revision. Revisions only grow, so a writer holding a
	// stale revision always conflicts.
	DocumentStore interface {
		Get(ctx context.Context, key string) (*Document, error)
		Put(ctx context.Context, key string, data []byte, expectedRevision int64) (int64, error)
		Close() error
	}

	// Pinger is implemented by stores backed by a remote server.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
