package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
)

type migration struct {
	to    int
	apply func(db *model.TelemedDB)
}

// Migrations run in order for every version below CurrentSeedVersion.
// Decoding already turns the old single window object into a list, so the
// step to 3 only has to clean the resulting windows up.
var migrations = []migration{
	{to: 2, apply: func(db *model.TelemedDB) {
		db.EnsureMaps()
	}},
	{to: 3, apply: func(db *model.TelemedDB) {
		for doctorID, windows := range db.DoctorAvailability {
			windows = windows.Sanitize()
			if len(windows) == 0 {
				windows = model.AvailabilityWindows{model.DefaultWindow}
			}
			db.DoctorAvailability[doctorID] = windows
		}
	}},
}

type loadAction int

const (
	loadOK loadAction = iota
	loadMigrated
	loadReseed
)

// DocumentVersion extracts seedVersion from a raw database document, 0 when absent or unreadable.
func DocumentVersion(data []byte) int {
	var probe struct {
		SeedVersion int `json:"seedVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0
	}
	return probe.SeedVersion
}

func (s *Store) decodeDB(data []byte) (*model.TelemedDB, loadAction, string) {
	var db model.TelemedDB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, loadReseed, "corrupt"
	}

	switch {
	case db.SeedVersion <= 0:
		return nil, loadReseed, "unversioned"
	case db.SeedVersion >= CurrentSeedVersion:
		db.EnsureMaps()
		return &db, loadOK, ""
	case s.cfg.MigrationMode == MigrationReseed:
		return nil, loadReseed, "stale"
	}

	for _, m := range migrations {
		if db.SeedVersion < m.to {
			m.apply(&db)
			db.SeedVersion = m.to
		}
	}
	db.EnsureMaps()
	db.SeedVersion = CurrentSeedVersion
	return &db, loadMigrated, ""
}

// readDB loads the database, persisting a seed or a migrated copy when the
// stored one is missing, unreadable or outdated.
func (s *Store) readDB(ctx context.Context) (*model.TelemedDB, int64, error) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		doc, err := s.get(ctx, KeyDB)
		if errors.Is(err, repository.ErrDocumentNotFound) {
			db, rev, err := s.writeSeed(ctx, 0)
			if errors.Is(err, repository.ErrRevisionConflict) {
				continue
			}
			if err == nil {
				s.metrics.StoreReseeds.WithLabelValues(documentName(KeyDB), "missing").Inc()
				s.logger.Info("Seeded empty database", "version", CurrentSeedVersion)
			}
			return db, rev, err
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read database: %w", err)
		}

		db, action, reason := s.decodeDB(doc.Data)
		switch action {
		case loadOK:
			return db, doc.Revision, nil

		case loadMigrated:
			from := DocumentVersion(doc.Data)
			rev, err := s.put(ctx, KeyDB, db, doc.Revision)
			if errors.Is(err, repository.ErrRevisionConflict) {
				continue
			}
			if err != nil {
				return nil, 0, err
			}
			s.logger.Info("Migrated database", "from", from, "to", CurrentSeedVersion)
			return db, rev, nil

		default:
			s.logger.Warn("Replacing database with seed data", "reason", reason)
			db, rev, err := s.writeSeed(ctx, doc.Revision)
			if errors.Is(err, repository.ErrRevisionConflict) {
				continue
			}
			if err == nil {
				s.metrics.StoreReseeds.WithLabelValues(documentName(KeyDB), reason).Inc()
			}
			return db, rev, err
		}
	}

	return nil, 0, apperrors.Conflict("database is being modified concurrently", repository.ErrRevisionConflict)
}
