package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Windows returns the doctor's windows, or the default window when none are stored.
func (s *Service) Windows(ctx context.Context, doctorID string) (model.AvailabilityWindows, error) {
	db, err := s.store.ReadDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read availability: %w", err)
	}
	return windowsOf(db, doctorID), nil
}

// PrimaryWindow is the first window, for callers that only know a single shift.
func (s *Service) PrimaryWindow(ctx context.Context, doctorID string) (model.AvailabilityWindow, error) {
	ws, err := s.Windows(ctx, doctorID)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}
	return ws[0], nil
}

// SetWindows replaces the doctor's windows. Invalid windows are clamped or dropped.
func (s *Service) SetWindows(ctx context.Context, doctorID string, windows model.AvailabilityWindows) (model.AvailabilityWindows, error) {
	return s.mutate(ctx, doctorID, func(model.AvailabilityWindows) (model.AvailabilityWindows, error) {
		return windows, nil
	})
}

// AddWindow appends w.
func (s *Service) AddWindow(ctx context.Context, doctorID string, w model.AvailabilityWindow) (model.AvailabilityWindows, error) {
	return s.mutate(ctx, doctorID, func(ws model.AvailabilityWindows) (model.AvailabilityWindows, error) {
		return append(ws, w), nil
	})
}

// UpdateWindow replaces the window at index.
func (s *Service) UpdateWindow(ctx context.Context, doctorID string, index int, w model.AvailabilityWindow) (model.AvailabilityWindows, error) {
	return s.mutate(ctx, doctorID, func(ws model.AvailabilityWindows) (model.AvailabilityWindows, error) {
		if index < 0 || index >= len(ws) {
			return nil, apperrors.BadRequest(fmt.Sprintf("window index %d out of range", index), nil)
		}
		ws[index] = w
		return ws, nil
	})
}

// RemoveWindow deletes the window at index. Removing the last window leaves
// the default window in its place.
func (s *Service) RemoveWindow(ctx context.Context, doctorID string, index int) (model.AvailabilityWindows, error) {
	return s.mutate(ctx, doctorID, func(ws model.AvailabilityWindows) (model.AvailabilityWindows, error) {
		if index < 0 || index >= len(ws) {
			return nil, apperrors.BadRequest(fmt.Sprintf("window index %d out of range", index), nil)
		}
		return append(ws[:index], ws[index+1:]...), nil
	})
}

// IsDoctorAvailableAt reports whether the local hour of t falls in any window.
func (s *Service) IsDoctorAvailableAt(ctx context.Context, doctorID string, t time.Time) (bool, error) {
	ws, err := s.Windows(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return AvailableAt(ws, t.In(s.store.Location())), nil
}

// AvailableAt checks t's hour against windows using t's own location.
func AvailableAt(windows model.AvailabilityWindows, t time.Time) bool {
	hour := t.Hour()
	for _, w := range windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

func (s *Service) mutate(ctx context.Context, doctorID string, fn func(model.AvailabilityWindows) (model.AvailabilityWindows, error)) (model.AvailabilityWindows, error) {
	if doctorID == "" {
		return nil, apperrors.BadRequest("doctor id is required", nil)
	}

	var result model.AvailabilityWindows
	_, err := s.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		current := append(model.AvailabilityWindows{}, windowsOf(db, doctorID)...)
		next, err := fn(current)
		if err != nil {
			return err
		}
		next = next.Sanitize()
		if len(next) == 0 {
			next = model.AvailabilityWindows{model.DefaultWindow}
		}
		db.DoctorAvailability[doctorID] = next
		result = next
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update availability: %w", err)
	}
	return result, nil
}

func windowsOf(db *model.TelemedDB, doctorID string) model.AvailabilityWindows {
	ws := db.DoctorAvailability[doctorID]
	if len(ws) == 0 {
		return model.AvailabilityWindows{model.DefaultWindow}
	}
	return append(model.AvailabilityWindows{}, ws...)
}
