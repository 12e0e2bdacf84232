package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Karan-0412/nabha/internal/repository"
)

type documentRow struct {
	Key      string `db:"key"`
	Data     []byte `db:"data"`
	Revision int64  `db:"revision"`
}

type documentRepository struct {
	BaseRepository
	prefix string
}

func NewDocumentRepository(db *sqlx.DB, prefix string) repository.DocumentStore {
	return &documentRepository{BaseRepository: NewBaseRepository(db), prefix: prefix}
}

func (r *documentRepository) key(k string) string {
	return r.prefix + k
}

func (r *documentRepository) Get(ctx context.Context, key string) (*repository.Document, error) {
	var row documentRow
	query := `SELECT key, data, revision FROM telemed_documents WHERE key = $1`
	if err := r.db.GetContext(ctx, &row, query, r.key(key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return &repository.Document{Key: key, Data: row.Data, Revision: row.Revision}, nil
}

func (r *documentRepository) Put(ctx context.Context, key string, data []byte, expectedRevision int64) (int64, error) {
	k := r.key(key)
	next := expectedRevision + 1

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current int64
		err := tx.GetContext(ctx, &current,
			`SELECT revision FROM telemed_documents WHERE key = $1 FOR UPDATE`, k)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			current = 0
		case err != nil:
			return err
		}

		if current != expectedRevision {
			return repository.ErrRevisionConflict
		}

		if current == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO telemed_documents (key, data, revision, updated_at)
				 VALUES ($1, $2, $3, NOW()) ON CONFLICT (key) DO NOTHING`,
				k, data, next)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return repository.ErrRevisionConflict
			}
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE telemed_documents SET data = $2, revision = $3, updated_at = NOW() WHERE key = $1`,
			k, data, next)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrRevisionConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to put document %s: %w", key, err)
	}
	return next, nil
}

func (r *documentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *documentRepository) Close() error {
	return r.db.Close()
}
