package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Karan-0412/nabha/internal/repository"
)

const (
	fieldData     = "data"
	fieldRevision = "revision"
)

type documentStore struct {
	client *redis.Client
	prefix string
}

// NewDocumentStore stores each document as a hash {data, revision} under prefix+key.
func NewDocumentStore(client *redis.Client, prefix string) repository.DocumentStore {
	return &documentStore{client: client, prefix: prefix}
}

// NewClient parses url and verifies the connection.
func NewClient(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *documentStore) key(k string) string {
	return s.prefix + k
}

func (s *documentStore) Get(ctx context.Context, key string) (*repository.Document, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), fieldData, fieldRevision).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	if vals[0] == nil {
		return nil, repository.ErrDocumentNotFound
	}

	data, _ := vals[0].(string)
	revStr, _ := vals[1].(string)
	rev, err := strconv.ParseInt(revStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid revision for document %s: %w", key, err)
	}

	return &repository.Document{Key: key, Data: []byte(data), Revision: rev}, nil
}

func (s *documentStore) Put(ctx context.Context, key string, data []byte, expectedRevision int64) (int64, error) {
	k := s.key(key)
	next := expectedRevision + 1

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, fieldRevision).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != expectedRevision {
			return repository.ErrRevisionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldData, data, fieldRevision, next)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, k)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, repository.ErrRevisionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, repository.ErrRevisionConflict
	default:
		return 0, fmt.Errorf("failed to put document %s: %w", key, err)
	}
}

func (s *documentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op: the client is shared with the broker and closed by its owner.
func (s *documentStore) Close() error {
	return nil
}
