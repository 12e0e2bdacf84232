// Package app assembles the storage backend, broker and services from
// configuration. The binaries under cmd/ share it.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/Karan-0412/nabha/config"
	"github.com/Karan-0412/nabha/internal/email"
	"github.com/Karan-0412/nabha/internal/repository"
	"github.com/Karan-0412/nabha/internal/repository/memory"
	"github.com/Karan-0412/nabha/internal/repository/postgres"
	redisrepo "github.com/Karan-0412/nabha/internal/repository/redis"
	"github.com/Karan-0412/nabha/internal/service/appointment"
	"github.com/Karan-0412/nabha/internal/service/availability"
	"github.com/Karan-0412/nabha/internal/service/call"
	"github.com/Karan-0412/nabha/internal/service/message"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/messaging"
	memorybroker "github.com/Karan-0412/nabha/pkg/messaging/memory"
	"github.com/Karan-0412/nabha/pkg/messaging/redis"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

// OpenDocuments connects the configured document backend.
func OpenDocuments(ctx context.Context, cfg config.StorageConfig) (repository.DocumentStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.NewDocumentStore(memory.Config{SnapshotPath: cfg.SnapshotPath})
	case "redis":
		client, err := redisrepo.NewClient(ctx, cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, err
		}
		return redisrepo.NewDocumentStore(client, cfg.KeyPrefix), nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Postgres.ToDBConfig())
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return postgres.NewDocumentRepository(db, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenBroker connects the configured change-signal broker.
func OpenBroker(cfg config.BrokerConfig, log *logger.Logger) (messaging.Broker, error) {
	switch cfg.Driver {
	case "", "memory":
		return memorybroker.NewBroker(), nil
	case "redis":
		b, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), log.Zerolog())
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

// OpenStore builds the document store for the process named source.
func OpenStore(ctx context.Context, cfg *config.Config, source string, log *logger.Logger, m *metrics.Metrics) (*store.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	docs, err := OpenDocuments(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	broker, err := OpenBroker(cfg.Broker, log)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("failed to open %s broker: %w", cfg.Broker.Driver, err)
	}

	return store.New(docs, broker, log, m, cfg.ToStoreConfig(source, loc)), nil
}

// Source names this process in published change signals.
func Source(binary string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return binary
	}
	return binary + "@" + host
}

type Services struct {
	Notification *notification.Service
	Message      *message.Service
	Availability *availability.Service
	Appointment  *appointment.Service
	Call         *call.Service
}

func NewServices(st *store.Store, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *Services {
	var mailer email.Service
	if cfg.Email.Enabled {
		mailer = email.NewSMTPService(cfg.Email.ToSMTPConfig())
	}

	notifSvc := notification.NewService(st, mailer, cfg.Email.ToMailConfig(), log, m)
	messageSvc := message.NewService(st)
	availabilitySvc := availability.NewService(st)

	return &Services{
		Notification: notifSvc,
		Message:      messageSvc,
		Availability: availabilitySvc,
		Appointment:  appointment.NewService(st, notifSvc, messageSvc, availabilitySvc, log),
		Call:         call.NewService(st, notifSvc, log, m),
	}
}
