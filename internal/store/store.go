// Package store owns the three persisted telemedicine documents: the
// appointments/calls database, the notification list and the chat messages.
//
// Every mutation is a whole-document read-modify-write. Writes are guarded by
// a compare-and-swap on the document revision and retried on conflict, and
// every successful write publishes a payload-free change signal.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/messaging"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

// Document keys.
const (
	KeyDB            = "telemed-db-v1"
	KeyNotifications = "telemed-notifications-v1"
	KeyMessages      = "telemed-messages-v1"
)

// Change channels.
const (
	ChannelDB            = "telemed:db-updated"
	ChannelNotifications = "telemed:notifications-updated"
	ChannelMessages      = "telemed:messages-updated"
)

const defaultMaxAttempts = 5

// ErrSkipWrite may be returned by an update func to leave the document untouched.
var ErrSkipWrite = errors.New("skip write")

type MigrationMode string

const (
	// MigrationAdditive upgrades old documents in place, keeping their records.
	MigrationAdditive MigrationMode = "additive"
	// MigrationReseed discards any document older than the current version.
	MigrationReseed MigrationMode = "reseed"
)

type Config struct {
	MigrationMode MigrationMode
	// MaxAttempts bounds compare-and-swap retries per update.
	MaxAttempts int
	// Source identifies this process in published signals.
	Source   string
	Location *time.Location
	Now      func() time.Time
}

type Store struct {
	docs    repository.DocumentStore
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics
	cfg     Config

	dbMu            sync.Mutex
	notificationsMu sync.Mutex
	messagesMu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func New(docs repository.DocumentStore, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics, cfg Config) *Store {
	if cfg.MigrationMode == "" {
		cfg.MigrationMode = MigrationAdditive
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("telemed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		docs:    docs,
		broker:  broker,
		logger:  log.WithFields(map[string]interface{}{"component": "store"}),
		metrics: m,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.cfg.Now()
}

// Location is the zone used for seeding and hour-of-day computations.
func (s *Store) Location() *time.Location {
	return s.cfg.Location
}

// ReadDB returns the current database, seeding or migrating it first when needed.
func (s *Store) ReadDB(ctx context.Context) (*model.TelemedDB, error) {
	db, _, err := s.readDB(ctx)
	return db, err
}

// WriteDB replaces the whole database with db.
func (s *Store) WriteDB(ctx context.Context, db *model.TelemedDB) error {
	_, err := s.UpdateDB(ctx, func(current *model.TelemedDB) error {
		*current = *db
		current.EnsureMaps()
		if current.SeedVersion == 0 {
			current.SeedVersion = CurrentSeedVersion
		}
		return nil
	})
	return err
}

// UpdateDB applies fn to a fresh copy of the database and persists the result.
// fn may run more than once when a concurrent writer wins the race.
func (s *Store) UpdateDB(ctx context.Context, fn func(db *model.TelemedDB) error) (*model.TelemedDB, error) {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	return casUpdate(ctx, s, KeyDB, s.readDB, fn)
}

// ResetDB overwrites the database with a fresh seed. The revision keeps
// growing, so writers that read the old database conflict instead of
// overwriting the reset.
func (s *Store) ResetDB(ctx context.Context) (*model.TelemedDB, error) {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		var rev int64
		doc, err := s.get(ctx, KeyDB)
		switch {
		case err == nil:
			rev = doc.Revision
		case !errors.Is(err, repository.ErrDocumentNotFound):
			return nil, fmt.Errorf("failed to read database: %w", err)
		}

		db, _, err := s.writeSeed(ctx, rev)
		if errors.Is(err, repository.ErrRevisionConflict) {
			s.metrics.StoreConflicts.WithLabelValues(documentName(KeyDB)).Inc()
			continue
		}
		if err != nil {
			return nil, err
		}
		s.metrics.StoreReseeds.WithLabelValues(documentName(KeyDB), "reset").Inc()
		s.logger.Info("Database reset to seed data")
		return db, nil
	}
	return nil, apperrors.Conflict("database is being modified concurrently", repository.ErrRevisionConflict)
}

// ReadNotifications returns the notification list, newest first.
func (s *Store) ReadNotifications(ctx context.Context) (*model.NotificationsDocument, error) {
	doc, _, err := s.readNotifications(ctx)
	return doc, err
}

func (s *Store) UpdateNotifications(ctx context.Context, fn func(doc *model.NotificationsDocument) error) (*model.NotificationsDocument, error) {
	s.notificationsMu.Lock()
	defer s.notificationsMu.Unlock()
	return casUpdate(ctx, s, KeyNotifications, s.readNotifications, fn)
}

func (s *Store) ReadMessages(ctx context.Context) (*model.MessagesDocument, error) {
	doc, _, err := s.readMessages(ctx)
	return doc, err
}

func (s *Store) UpdateMessages(ctx context.Context, fn func(doc *model.MessagesDocument) error) (*model.MessagesDocument, error) {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()
	return casUpdate(ctx, s, KeyMessages, s.readMessages, fn)
}

// RawDocument returns the stored bytes for key without any repair.
func (s *Store) RawDocument(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.docs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, apperrors.NotFound("document "+key, err)
		}
		return nil, err
	}
	return doc.Data, nil
}

// Ping checks the backing store when it is remote.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.docs.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close ends all subscriptions and releases the document store and broker.
func (s *Store) Close() error {
	s.cancel()

	var errs []error
	if err := s.docs.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func casUpdate[T any](ctx context.Context, s *Store, key string, read func(context.Context) (*T, int64, error), fn func(*T) error) (*T, error) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		v, rev, err := read(ctx)
		if err != nil {
			return nil, err
		}

		if err := fn(v); err != nil {
			if errors.Is(err, ErrSkipWrite) {
				return v, nil
			}
			return nil, err
		}

		if _, err := s.put(ctx, key, v, rev); err != nil {
			if errors.Is(err, repository.ErrRevisionConflict) {
				s.metrics.StoreConflicts.WithLabelValues(documentName(key)).Inc()
				s.logger.Debug("Revision conflict, retrying", "document", key, "attempt", attempt)
				continue
			}
			return nil, err
		}
		return v, nil
	}

	return nil, apperrors.Conflict(
		fmt.Sprintf("document %s is being modified concurrently", key),
		repository.ErrRevisionConflict,
	)
}

func (s *Store) put(ctx context.Context, key string, v interface{}, expectedRevision int64) (int64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	start := time.Now()
	rev, err := s.docs.Put(ctx, key, data, expectedRevision)
	s.metrics.StoreLatency.WithLabelValues("put").Observe(time.Since(start).Seconds())

	name := documentName(key)
	switch {
	case errors.Is(err, repository.ErrRevisionConflict):
		s.metrics.StoreWrites.WithLabelValues(name, "conflict").Inc()
		return 0, err
	case err != nil:
		s.metrics.StoreWrites.WithLabelValues(name, "error").Inc()
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.metrics.StoreWrites.WithLabelValues(name, "ok").Inc()

	s.publish(ctx, channelFor(key))
	return rev, nil
}

func (s *Store) get(ctx context.Context, key string) (*repository.Document, error) {
	start := time.Now()
	doc, err := s.docs.Get(ctx, key)
	s.metrics.StoreLatency.WithLabelValues("get").Observe(time.Since(start).Seconds())
	return doc, err
}

func (s *Store) readNotifications(ctx context.Context) (*model.NotificationsDocument, int64, error) {
	doc := &model.NotificationsDocument{}
	rev, err := s.readSimple(ctx, KeyNotifications, func(data []byte) error {
		var decoded model.NotificationsDocument
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		*doc = decoded
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if doc.Notifications == nil {
		doc.Notifications = []model.Notification{}
	}
	return doc, rev, nil
}

func (s *Store) readMessages(ctx context.Context) (*model.MessagesDocument, int64, error) {
	doc := &model.MessagesDocument{}
	rev, err := s.readSimple(ctx, KeyMessages, func(data []byte) error {
		var decoded model.MessagesDocument
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		*doc = decoded
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if doc.Rooms == nil {
		doc.Rooms = []model.ChatRoom{}
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	return doc, rev, nil
}

// readSimple loads an unversioned document. Missing or corrupt data yields the
// empty default; the returned revision still lets the next write replace it.
func (s *Store) readSimple(ctx context.Context, key string, decode func([]byte) error) (int64, error) {
	doc, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := decode(doc.Data); err != nil {
		s.logger.Warn("Corrupt document, using empty default", "document", key, "error", err.Error())
		s.metrics.StoreReseeds.WithLabelValues(documentName(key), "corrupt").Inc()
	}
	return doc.Revision, nil
}

func documentName(key string) string {
	switch key {
	case KeyDB:
		return "db"
	case KeyNotifications:
		return "notifications"
	case KeyMessages:
		return "messages"
	}
	return key
}

func channelFor(key string) string {
	switch key {
	case KeyNotifications:
		return ChannelNotifications
	case KeyMessages:
		return ChannelMessages
	}
	return ChannelDB
}
