package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository/memory"
	"github.com/Karan-0412/nabha/internal/service/availability"
	"github.com/Karan-0412/nabha/internal/service/message"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
)

var now = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *store.Store
	notifs   *notification.Service
	messages *message.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	docs, err := memory.NewDocumentStore(memory.Config{})
	require.NoError(t, err)
	st := store.New(docs, nil, nil, nil, store.Config{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	t.Cleanup(func() { st.Close() })

	notifs := notification.NewService(st, nil, notification.MailConfig{}, nil, nil)
	messages := message.NewService(st)
	svc := NewService(st, notifs, messages, availability.NewService(st), nil)
	return &fixture{svc: svc, store: st, notifs: notifs, messages: messages}
}

func request(at time.Time) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID:   "p1",
		PatientName: "Jane Smith",
		DoctorID:    "d1",
		DoctorName:  "Dr. Johnson",
		ScheduledAt: at,
	}
}

func TestCreate_DefaultsAndSingleNotification(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	apt, err := f.svc.Create(ctx, request(now.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
	assert.Equal(t, model.AppointmentTypeVideo, apt.Type)
	assert.Contains(t, apt.ID, model.PrefixAppointment)

	items, err := f.notifs.List(ctx, model.RecipientAny, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.RecipientAll, items[0].Recipient)
	assert.Equal(t, model.NotificationTypeAppointment, items[0].Type)
	assert.Equal(t, "New appointment scheduled", items[0].Title)
	assert.Equal(t, "Jane Smith with Dr. Johnson at Jan 16, 2025 8:00 AM", items[0].Message)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreate_KeepsGivenStatus(t *testing.T) {
	f := setup(t)
	req := request(now.Add(time.Hour))
	req.Status = model.AppointmentStatusPending
	req.Type = model.AppointmentTypePhone

	apt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, model.AppointmentTypePhone, apt.Type)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	req := request(now)
	req.PatientName = ""
	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestScheduleChecked_RejectsOutsideAvailability(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.ScheduleChecked(ctx, request(time.Date(2025, 1, 16, 12, 30, 0, 0, time.UTC)))
	require.Error(t, err)
	assert.True(t, apperrors.IsBadRequest(err))

	apt, err := f.svc.ScheduleChecked(ctx, request(time.Date(2025, 1, 16, 13, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
}

func TestAccept_PendingAppointment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	db, err := f.store.ReadDB(ctx)
	require.NoError(t, err)
	var pending model.Appointment
	for _, a := range db.Appointments {
		if a.Status == model.AppointmentStatusPending {
			pending = a
		}
	}
	require.NotEmpty(t, pending.ID)

	apt, err := f.svc.Accept(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	db, err = f.store.ReadDB(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, db.FindAppointment(pending.ID).Status)

	items, err := f.notifs.List(ctx, model.RecipientAny, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.RecipientPatient, items[0].Recipient)
	assert.Equal(t, pending.PatientID, items[0].RecipientID)

	msgs, err := f.messages.MessagesForRoom(ctx, "patient-"+pending.PatientID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderSystem, msgs[0].Sender)
}

func TestAccept_UnknownIDHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	before, err := f.store.ReadDB(ctx)
	require.NoError(t, err)

	apt, err := f.svc.Accept(ctx, "apt_missing")
	assert.Nil(t, apt)
	assert.True(t, apperrors.IsNotFound(err))

	after, err := f.store.ReadDB(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	items, err := f.notifs.List(ctx, model.RecipientAny, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	rooms, err := f.messages.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestReject_StoresReason(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	apt, err := f.svc.Create(ctx, request(now.Add(3*time.Hour)))
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, apt.ID, "doctor unavailable")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, rejected.Status)
	assert.Equal(t, "doctor unavailable", rejected.CancelReason)

	items, err := f.notifs.List(ctx, model.RecipientPatient, "p1")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "Appointment cancelled", items[0].Title)
	assert.Contains(t, items[0].Message, "doctor unavailable")
}

func TestListForIdentity(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Create(ctx, request(now.Add(-time.Hour)))
	require.NoError(t, err)

	patient, err := f.svc.ListForIdentity(ctx, model.Identity{Role: model.RolePatient, UserID: "p1"})
	require.NoError(t, err)
	assert.Len(t, patient, 2)
	assert.True(t, patient[0].ScheduledAt.Before(patient[1].ScheduledAt))

	upcoming, err := f.svc.UpcomingForIdentity(ctx, model.Identity{Role: model.RolePatient, UserID: "p1"})
	require.NoError(t, err)
	assert.Len(t, upcoming, 1)

	doctor, err := f.svc.ListForIdentity(ctx, model.Identity{Role: model.RoleDoctor, UserID: "d1"})
	require.NoError(t, err)
	assert.Len(t, doctor, 3)

	nobody, err := f.svc.ListForIdentity(ctx, model.Identity{Role: model.RoleDoctor, UserID: "d9"})
	require.NoError(t, err)
	assert.Empty(t, nobody)
}
