package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/email"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository/memory"
	"github.com/Karan-0412/nabha/internal/store"
)

func newTestService(t *testing.T, mailer email.Service) *Service {
	t.Helper()
	docs, err := memory.NewDocumentStore(memory.Config{})
	require.NoError(t, err)
	st := store.New(docs, nil, nil, nil, store.Config{Location: time.UTC})
	t.Cleanup(func() { st.Close() })
	return NewService(st, mailer, MailConfig{PatientAddress: "patient@example.com", DoctorAddress: "doctor@example.com"}, nil, nil)
}

func TestAdd_PrependsNewest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	first, err := svc.Add(ctx, Input{Type: model.NotificationTypeAppointment, Title: "one", Recipient: model.RecipientAll})
	require.NoError(t, err)
	second, err := svc.Add(ctx, Input{Type: model.NotificationTypeMessage, Title: "two"})
	require.NoError(t, err)

	assert.Equal(t, model.RecipientAll, second.Recipient)
	assert.False(t, second.Read)
	assert.Contains(t, first.ID, model.PrefixNotification)

	items, err := svc.List(ctx, model.RecipientAny, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestList_FiltersByRecipient(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.Add(ctx, Input{Title: "all", Recipient: model.RecipientAll})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Title: "patient", Recipient: model.RecipientPatient})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Title: "doctor d1", Recipient: model.RecipientDoctor, RecipientID: "d1"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Title: "doctor d2", Recipient: model.RecipientDoctor, RecipientID: "d2"})
	require.NoError(t, err)

	titles := func(items []model.Notification) []string {
		out := []string{}
		for _, n := range items {
			out = append(out, n.Title)
		}
		return out
	}

	patient, err := svc.List(ctx, model.RecipientPatient, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"patient", "all"}, titles(patient))

	doctor, err := svc.List(ctx, model.RecipientDoctor, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doctor d1", "all"}, titles(doctor))

	anyDoctor, err := svc.List(ctx, model.RecipientDoctor, "")
	require.NoError(t, err)
	assert.Len(t, anyDoctor, 3)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	n, err := svc.Add(ctx, Input{Title: "x", Recipient: model.RecipientPatient})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "ntf_unknown"))
	count, err := svc.UnreadCount(ctx, model.RecipientPatient, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkRead(ctx, n.ID))
	count, err = svc.UnreadCount(ctx, model.RecipientPatient, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.Add(ctx, Input{Title: "p", Recipient: model.RecipientPatient})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Title: "d", Recipient: model.RecipientDoctor})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Title: "a", Recipient: model.RecipientAll})
	require.NoError(t, err)

	changed, err := svc.MarkAllRead(ctx, model.RecipientPatient, "")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	count, err := svc.UnreadCount(ctx, model.RecipientDoctor, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdd_ForwardsRemindersByMail(t *testing.T) {
	ctx := context.Background()
	mailer := email.NewRecordingService()
	svc := newTestService(t, mailer)

	_, err := svc.Add(ctx, Input{Type: model.NotificationTypeAppointment, Title: "skip", Recipient: model.RecipientAll})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Input{Type: model.NotificationTypeReminder, Title: "Appointment in 15 minutes", Message: "Jane • Dr. J", Recipient: model.RecipientAll})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	sent := mailer.Sent()
	assert.ElementsMatch(t, []string{"patient@example.com", "doctor@example.com"}, []string{sent[0].To, sent[1].To})
	assert.Equal(t, "Appointment in 15 minutes", sent[0].Subject)
}
