package call

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository/memory"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
)

type fixture struct {
	svc    *Service
	notifs *notification.Service
	clock  time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}

	docs, err := memory.NewDocumentStore(memory.Config{})
	require.NoError(t, err)
	st := store.New(docs, nil, nil, nil, store.Config{
		Location: time.UTC,
		Now:      func() time.Time { return f.clock },
	})
	t.Cleanup(func() { st.Close() })

	f.notifs = notification.NewService(st, nil, notification.MailConfig{}, nil, nil)
	f.svc = NewService(st, f.notifs, nil, nil)
	return f
}

func janeAndJohnson() *model.StartCallRequest {
	return &model.StartCallRequest{
		PatientID:   "p1",
		PatientName: "Jane Smith",
		DoctorID:    "d1",
		DoctorName:  "Dr. Johnson",
	}
}

func TestRingingCallLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	call, err := f.svc.CreateRinging(ctx, janeAndJohnson())
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusRinging, call.Status)
	assert.Nil(t, call.StartedAt)
	assert.Nil(t, call.EndedAt)

	patientItems, err := f.notifs.List(ctx, model.RecipientPatient, "p1")
	require.NoError(t, err)
	require.Len(t, patientItems, 1)
	assert.Equal(t, "Incoming call", patientItems[0].Title)
	assert.Equal(t, "Dr. Johnson is calling Jane Smith", patientItems[0].Message)

	doctorItems, err := f.notifs.List(ctx, model.RecipientDoctor, "d1")
	require.NoError(t, err)
	require.Len(t, doctorItems, 1)
	assert.Equal(t, "Outbound call", doctorItems[0].Title)

	f.clock = f.clock.Add(5 * time.Second)
	accepted, err := f.svc.Accept(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusActive, accepted.Status)
	require.NotNil(t, accepted.StartedAt)
	assert.Equal(t, f.clock, *accepted.StartedAt)

	f.clock = f.clock.Add(10 * time.Minute)
	ended, err := f.svc.End(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, f.clock, *ended.EndedAt)

	history, err := f.svc.HistoryForIdentity(ctx, model.Identity{Role: model.RolePatient, UserID: "p1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, call.ID, history[0].ID)
}

func TestUnknownCallIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	for name, op := range map[string]func(context.Context, string) (*model.Call, error){
		"accept":  f.svc.Accept,
		"decline": f.svc.Decline,
		"end":     f.svc.End,
	} {
		call, err := op(ctx, "call_missing")
		assert.Nil(t, call, name)
		assert.True(t, apperrors.IsNotFound(err), name)
	}

	items, err := f.notifs.List(ctx, model.RecipientAny, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	call, err := f.svc.CreateRinging(ctx, janeAndJohnson())
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusDeclined, declined.Status)
	assert.NotNil(t, declined.EndedAt)

	_, err = f.svc.Accept(ctx, call.ID)
	assert.True(t, apperrors.IsConflict(err))
	_, err = f.svc.End(ctx, call.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestEndRingingCallIsMissed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	call, err := f.svc.CreateRinging(ctx, janeAndJohnson())
	require.NoError(t, err)

	ended, err := f.svc.End(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusMissed, ended.Status)
}

func TestAcceptActiveCallConflicts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	call, err := f.svc.StartNow(ctx, janeAndJohnson())
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusActive, call.Status)
	require.NotNil(t, call.StartedAt)

	_, err = f.svc.Accept(ctx, call.ID)
	assert.True(t, apperrors.IsConflict(err))
	_, err = f.svc.Decline(ctx, call.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestOneOpenCallPerPatient(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.svc.CreateRinging(ctx, janeAndJohnson())
	require.NoError(t, err)

	_, err = f.svc.StartNow(ctx, janeAndJohnson())
	assert.True(t, apperrors.IsConflict(err))

	open, err := f.svc.ActiveOrRingingForPatient(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)

	_, err = f.svc.End(ctx, first.ID)
	require.NoError(t, err)

	open, err = f.svc.ActiveOrRingingForPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, open)

	_, err = f.svc.StartNow(ctx, janeAndJohnson())
	assert.NoError(t, err)
}
