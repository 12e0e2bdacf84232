package call

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
	"github.com/Karan-0412/nabha/pkg/validator"
)

type Service struct {
	store     *store.Store
	notifSvc  *notification.Service
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(st *store.Store, notifSvc *notification.Service, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("telemed")
	}
	return &Service{
		store:     st,
		notifSvc:  notifSvc,
		validator: validator.New(),
		logger:    log,
		metrics:   m,
	}
}

// StartNow creates a call that is already active.
func (s *Service) StartNow(ctx context.Context, req *model.StartCallRequest) (*model.Call, error) {
	call, err := s.create(ctx, req, model.CallStatusActive)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Input{
		Type:      model.NotificationTypeCall,
		Title:     "Call started",
		Message:   fmt.Sprintf("%s with %s", call.PatientName, call.DoctorName),
		Recipient: model.RecipientAll,
	})
	return call, nil
}

// CreateRinging creates an unanswered call and alerts both parties.
func (s *Service) CreateRinging(ctx context.Context, req *model.StartCallRequest) (*model.Call, error) {
	call, err := s.create(ctx, req, model.CallStatusRinging)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Input{
		Type:        model.NotificationTypeCall,
		Title:       "Incoming call",
		Message:     fmt.Sprintf("%s is calling %s", call.DoctorName, call.PatientName),
		Recipient:   model.RecipientPatient,
		RecipientID: call.PatientID,
	})
	s.notify(ctx, notification.Input{
		Type:        model.NotificationTypeCall,
		Title:       "Outbound call",
		Message:     fmt.Sprintf("Calling %s", call.PatientName),
		Recipient:   model.RecipientDoctor,
		RecipientID: call.DoctorID,
	})
	return call, nil
}

// Accept answers a ringing call.
func (s *Service) Accept(ctx context.Context, id string) (*model.Call, error) {
	call, err := s.transition(ctx, id, func(c *model.Call, now time.Time) error {
		if c.Status != model.CallStatusRinging {
			return invalidTransition(c, model.CallStatusActive)
		}
		c.Status = model.CallStatusActive
		c.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Input{
		Type:      model.NotificationTypeCall,
		Title:     "Call accepted",
		Message:   fmt.Sprintf("%s and %s are now connected", call.PatientName, call.DoctorName),
		Recipient: model.RecipientAll,
	})
	return call, nil
}

// Decline refuses a ringing call.
func (s *Service) Decline(ctx context.Context, id string) (*model.Call, error) {
	call, err := s.transition(ctx, id, func(c *model.Call, now time.Time) error {
		if c.Status != model.CallStatusRinging {
			return invalidTransition(c, model.CallStatusDeclined)
		}
		c.Status = model.CallStatusDeclined
		c.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Input{
		Type:        model.NotificationTypeCall,
		Title:       "Call declined",
		Message:     fmt.Sprintf("%s declined the call", call.PatientName),
		Recipient:   model.RecipientDoctor,
		RecipientID: call.DoctorID,
	})
	return call, nil
}

// End hangs up an active call. Hanging up a call that never connected marks it missed.
func (s *Service) End(ctx context.Context, id string) (*model.Call, error) {
	call, err := s.transition(ctx, id, func(c *model.Call, now time.Time) error {
		switch c.Status {
		case model.CallStatusActive:
			c.Status = model.CallStatusEnded
		case model.CallStatusRinging:
			c.Status = model.CallStatusMissed
		default:
			return invalidTransition(c, model.CallStatusEnded)
		}
		c.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	title := "Call ended"
	if call.Status == model.CallStatusMissed {
		title = "Call missed"
	}
	s.notify(ctx, notification.Input{
		Type:      model.NotificationTypeCall,
		Title:     title,
		Message:   fmt.Sprintf("%s with %s", call.PatientName, call.DoctorName),
		Recipient: model.RecipientAll,
	})
	return call, nil
}

// ActiveOrRingingForPatient returns the patient's open call, or nil.
func (s *Service) ActiveOrRingingForPatient(ctx context.Context, patientID string) (*model.Call, error) {
	db, err := s.store.ReadDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read calls: %w", err)
	}
	if c := db.OpenCallForPatient(patientID); c != nil {
		out := *c
		return &out, nil
	}
	return nil, nil
}

// ListAll returns calls ordered by start time, falling back to end time.
func (s *Service) ListAll(ctx context.Context) ([]model.Call, error) {
	db, err := s.store.ReadDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read calls: %w", err)
	}
	calls := append([]model.Call{}, db.Calls...)
	sort.SliceStable(calls, func(i, j int) bool {
		return sortKey(calls[i]).Before(sortKey(calls[j]))
	})
	return calls, nil
}

// HistoryForIdentity returns the caller's ended calls.
func (s *Service) HistoryForIdentity(ctx context.Context, id model.Identity) ([]model.Call, error) {
	calls, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Call, 0)
	for _, c := range calls {
		if c.Status != model.CallStatusEnded {
			continue
		}
		if (id.Role == model.RolePatient && c.PatientID == id.UserID) ||
			(id.Role == model.RoleDoctor && c.DoctorID == id.UserID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, req *model.StartCallRequest, status model.CallStatus) (*model.Call, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	call := model.Call{
		ID:            model.NewID(model.PrefixCall),
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		PatientName:   req.PatientName,
		DoctorID:      req.DoctorID,
		DoctorName:    req.DoctorName,
		Status:        status,
	}
	if status == model.CallStatusActive {
		started := s.store.Now().UTC()
		call.StartedAt = &started
	}

	_, err := s.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		if open := db.OpenCallForPatient(req.PatientID); open != nil {
			return apperrors.Conflict(
				fmt.Sprintf("patient %s already has a %s call", req.PatientID, open.Status), nil)
		}
		db.Calls = append(db.Calls, call)
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create call: %w", err)
	}

	s.metrics.CallTransitions.WithLabelValues(string(status)).Inc()
	return &call, nil
}

func (s *Service) transition(ctx context.Context, id string, apply func(c *model.Call, now time.Time) error) (*model.Call, error) {
	var updated model.Call
	_, err := s.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		c := db.FindCall(id)
		if c == nil {
			return apperrors.NotFound("call", nil)
		}
		if err := apply(c, s.store.Now().UTC()); err != nil {
			return err
		}
		updated = *c
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update call: %w", err)
	}

	s.metrics.CallTransitions.WithLabelValues(string(updated.Status)).Inc()
	s.logger.Debug("Call transitioned", "call_id", updated.ID, "status", string(updated.Status))
	return &updated, nil
}

func (s *Service) notify(ctx context.Context, in notification.Input) {
	if _, err := s.notifSvc.Add(ctx, in); err != nil {
		s.logger.Error(err, "Failed to add notification", "title", in.Title)
	}
}

func invalidTransition(c *model.Call, to model.CallStatus) error {
	return apperrors.Conflict(fmt.Sprintf("call %s is %s and cannot become %s", c.ID, c.Status, to), nil)
}

func sortKey(c model.Call) time.Time {
	if c.StartedAt != nil {
		return *c.StartedAt
	}
	if c.EndedAt != nil {
		return *c.EndedAt
	}
	return time.Time{}
}
