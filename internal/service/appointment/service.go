package appointment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/availability"
	"github.com/Karan-0412/nabha/internal/service/message"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/validator"
)

// displayLayout renders appointment times in notification text.
const displayLayout = "Jan 2, 2006 3:04 PM"

type Service struct {
	store        *store.Store
	notifSvc     *notification.Service
	messageSvc   *message.Service
	availability *availability.Service
	validator    validator.Validator
	logger       *logger.Logger
}

func NewService(st *store.Store, notifSvc *notification.Service, messageSvc *message.Service, availabilitySvc *availability.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:        st,
		notifSvc:     notifSvc,
		messageSvc:   messageSvc,
		availability: availabilitySvc,
		validator:    validator.New(),
		logger:       log,
	}
}

// Create stores a new appointment and announces it to everyone. It performs no
// availability or overlap check.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	apt := model.Appointment{
		ID:              model.NewID(model.PrefixAppointment),
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		DoctorID:        req.DoctorID,
		DoctorName:      req.DoctorName,
		ScheduledAt:     req.ScheduledAt.UTC(),
		Type:            req.Type,
		Status:          req.Status,
		DurationMinutes: req.DurationMinutes,
	}
	if apt.Type == "" {
		apt.Type = model.AppointmentTypeVideo
	}
	if apt.Status == "" {
		apt.Status = model.AppointmentStatusConfirmed
	}

	if _, err := s.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		db.Appointments = append(db.Appointments, apt)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.notify(ctx, notification.Input{
		Type:      model.NotificationTypeAppointment,
		Title:     "New appointment scheduled",
		Message:   fmt.Sprintf("%s with %s at %s", apt.PatientName, apt.DoctorName, s.display(apt.ScheduledAt)),
		Recipient: model.RecipientAll,
	})

	return &apt, nil
}

// ScheduleChecked creates the appointment only if the doctor is available at its time.
func (s *Service) ScheduleChecked(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	ok, err := s.availability.IsDoctorAvailableAt(ctx, req.DoctorID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("%s not available at the selected time", req.DoctorName), nil)
	}
	return s.Create(ctx, req)
}

// Accept confirms an appointment, tells the patient and posts a system
// message into the patient's room. The two writes are independent.
func (s *Service) Accept(ctx context.Context, id string) (*model.Appointment, error) {
	apt, err := s.setStatus(ctx, id, model.AppointmentStatusConfirmed, "")
	if err != nil {
		return nil, err
	}

	when := s.display(apt.ScheduledAt)
	s.notify(ctx, notification.Input{
		Type:        model.NotificationTypeAppointment,
		Title:       "Appointment confirmed",
		Message:     fmt.Sprintf("%s confirmed your appointment at %s", apt.DoctorName, when),
		Recipient:   model.RecipientPatient,
		RecipientID: apt.PatientID,
	})

	roomID := model.PatientRoomID(apt.PatientID)
	if _, err := s.messageSvc.EnsureRoom(ctx, roomID, apt.PatientName, model.RoomTypePatient); err != nil {
		s.logger.Error(err, "Failed to ensure patient room", "room_id", roomID)
	} else if _, err := s.messageSvc.AddMessage(ctx, roomID, model.SenderSystem,
		fmt.Sprintf("Your appointment with %s at %s has been confirmed.", apt.DoctorName, when)); err != nil {
		s.logger.Error(err, "Failed to post confirmation message", "room_id", roomID)
	}

	return apt, nil
}

// Reject cancels an appointment and tells the patient why.
func (s *Service) Reject(ctx context.Context, id, reason string) (*model.Appointment, error) {
	apt, err := s.setStatus(ctx, id, model.AppointmentStatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s cancelled your appointment at %s", apt.DoctorName, s.display(apt.ScheduledAt))
	if reason != "" {
		msg += ": " + reason
	}
	s.notify(ctx, notification.Input{
		Type:        model.NotificationTypeAppointment,
		Title:       "Appointment cancelled",
		Message:     msg,
		Recipient:   model.RecipientPatient,
		RecipientID: apt.PatientID,
	})
	return apt, nil
}

// ListAll returns every appointment ordered by time.
func (s *Service) ListAll(ctx context.Context) ([]model.Appointment, error) {
	db, err := s.store.ReadDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	apts := append([]model.Appointment{}, db.Appointments...)
	sort.SliceStable(apts, func(i, j int) bool {
		return apts[i].ScheduledAt.Before(apts[j].ScheduledAt)
	})
	return apts, nil
}

// ListForIdentity returns the caller's appointments as patient or doctor.
func (s *Service) ListForIdentity(ctx context.Context, id model.Identity) ([]model.Appointment, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0)
	for i := range all {
		if all[i].InvolvesUser(id) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// UpcomingForIdentity is ListForIdentity limited to appointments not yet started.
func (s *Service) UpcomingForIdentity(ctx context.Context, id model.Identity) ([]model.Appointment, error) {
	mine, err := s.ListForIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.store.Now()
	out := make([]model.Appointment, 0, len(mine))
	for _, a := range mine {
		if !a.ScheduledAt.Before(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) setStatus(ctx context.Context, id string, status model.AppointmentStatus, reason string) (*model.Appointment, error) {
	var updated model.Appointment
	_, err := s.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		apt := db.FindAppointment(id)
		if apt == nil {
			return apperrors.NotFound("appointment", nil)
		}
		apt.Status = status
		if reason != "" {
			apt.CancelReason = reason
		}
		updated = *apt
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return &updated, nil
}

func (s *Service) notify(ctx context.Context, in notification.Input) {
	if _, err := s.notifSvc.Add(ctx, in); err != nil {
		s.logger.Error(err, "Failed to add notification", "title", in.Title)
	}
}

func (s *Service) display(t time.Time) string {
	return t.In(s.store.Location()).Format(displayLayout)
}
