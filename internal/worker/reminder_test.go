package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/repository/memory"
	"github.com/Karan-0412/nabha/internal/service/call"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
)

type fixture struct {
	clock    time.Time
	store    *store.Store
	notifs   *notification.Service
	reminder *Reminder
	calls    *call.Service
}

func setup(t *testing.T, start time.Time) *fixture {
	t.Helper()
	f := &fixture{clock: start}

	docs, err := memory.NewDocumentStore(memory.Config{})
	require.NoError(t, err)
	f.store = store.New(docs, nil, nil, nil, store.Config{
		Location: time.UTC,
		Now:      func() time.Time { return f.clock },
	})
	t.Cleanup(func() { f.store.Close() })

	f.notifs = notification.NewService(f.store, nil, notification.MailConfig{}, nil, nil)
	f.reminder = NewReminder(f.store, f.notifs, ReminderConfig{}, nil, nil)
	f.calls = call.NewService(f.store, f.notifs, nil, nil)

	// seed relative to the starting clock
	_, err = f.store.ReadDB(context.Background())
	require.NoError(t, err)
	return f
}

// titles lists what patient p1 sees, newest first.
func (f *fixture) titles(t *testing.T) []string {
	t.Helper()
	items, err := f.notifs.List(context.Background(), model.RecipientPatient, "p1")
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.Title)
	}
	return out
}

func TestReminder_FiresEachThresholdOnce(t *testing.T) {
	ctx := context.Background()
	// seeded appointment lands at 05:00, no shift window opens nearby
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))

	fired, err := f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)

	f.clock = time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, 60, fired[0].Threshold)
	require.Len(t, fired[0].Notifications, 2)
	assert.Equal(t, "Jane Smith • Dr. Johnson at 5:00 AM", fired[0].Notifications[0].Message)
	assert.Equal(t, "Appointment in 60 minutes", fired[0].Notifications[0].Title)

	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)

	f.clock = time.Date(2025, 1, 15, 4, 31, 0, 0, time.UTC)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, 30, fired[0].Threshold)

	f.clock = time.Date(2025, 1, 15, 4, 50, 0, 0, time.UTC)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, 15, fired[0].Threshold)

	f.clock = time.Date(2025, 1, 15, 4, 55, 0, 0, time.UTC)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)

	assert.Equal(t, []string{
		"Appointment in 10 minutes",
		"Appointment in 29 minutes",
		"Appointment in 60 minutes",
	}, f.titles(t))

	db, err := f.store.ReadDB(ctx)
	require.NoError(t, err)
	flags := db.ReminderFlags[seededAppointmentID(t, db)]
	assert.True(t, flags.M60)
	assert.True(t, flags.M30)
	assert.True(t, flags.M15)
}

func seededAppointmentID(t *testing.T, db *model.TelemedDB) string {
	t.Helper()
	for _, a := range db.Appointments {
		if a.PatientID == "p1" {
			return a.ID
		}
	}
	t.Fatal("seeded appointment missing")
	return ""
}

func TestReminder_LateTickFiresTightestOnly(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))

	// the agent was down through the 60 and 30 minute marks
	f.clock = time.Date(2025, 1, 15, 4, 48, 30, 0, time.UTC)
	fired, err := f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, 15, fired[0].Threshold)

	f.clock = f.clock.Add(30 * time.Second)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)

	assert.Equal(t, []string{"Appointment in 11 minutes"}, f.titles(t))
}

func TestReminder_StartedAppointmentIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))

	f.clock = time.Date(2025, 1, 15, 5, 1, 0, 0, time.UTC)
	fired, err := f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestReminder_ShiftReminderOncePerWindow(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 8, 50, 0, 0, time.UTC))

	fired, err := f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, KindShift, fired[0].Kind)
	assert.Equal(t, "d1", fired[0].DoctorID)
	assert.Equal(t, "2025-01-15_9", fired[0].DateKey)

	items, err := f.notifs.List(ctx, model.RecipientDoctor, "d1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shift starts in 10 minutes", items[0].Title)
	assert.Equal(t, "Your availability starts at 9:00", items[0].Message)
	assert.Equal(t, "d1", items[0].RecipientID)

	other, err := f.notifs.List(ctx, model.RecipientDoctor, "d2")
	require.NoError(t, err)
	assert.Empty(t, other)

	f.clock = f.clock.Add(time.Minute)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)

	// afternoon window of the same doctor
	f.clock = time.Date(2025, 1, 15, 12, 45, 0, 0, time.UTC)
	fired, err = f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, "2025-01-15_13", fired[0].DateKey)

	db, err := f.store.ReadDB(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15_13", db.ShiftReminder["d1"])
}

func TestPlan_SkipsCancelledAndFiredAppointments(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	db := &model.TelemedDB{
		Appointments: []model.Appointment{
			{ID: "apt_a", ScheduledAt: now.Add(20 * time.Minute), Status: model.AppointmentStatusCancelled},
			{ID: "apt_b", ScheduledAt: now.Add(20 * time.Minute), Status: model.AppointmentStatusConfirmed},
			{ID: "apt_c", ScheduledAt: now.Add(20 * time.Minute), Status: model.AppointmentStatusPending},
			{ID: "apt_d", ScheduledAt: now.Add(3 * time.Hour), Status: model.AppointmentStatusConfirmed},
		},
	}
	db.EnsureMaps()
	db.ReminderFlags["apt_b"] = model.ReminderFlags{M60: true, M30: true}

	due := Plan(db, now, time.UTC, DefaultReminderConfig())
	require.Len(t, due, 1)
	assert.Equal(t, "apt_c", due[0].AppointmentID)
	assert.Equal(t, 30, due[0].Threshold)
	require.Len(t, due[0].Notifications, 2)
	assert.Equal(t, model.RecipientPatient, due[0].Notifications[0].Recipient)
	assert.Equal(t, model.RecipientDoctor, due[0].Notifications[1].Recipient)
	assert.Equal(t, model.NotificationTypeReminder, due[0].Notifications[0].Type)
	assert.Equal(t, "Appointment in 20 minutes", due[0].Notifications[0].Title)
}

func TestPlan_BoundaryUsesFlooredMinutes(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	db := &model.TelemedDB{
		Appointments: []model.Appointment{
			{ID: "apt_edge", ScheduledAt: now.Add(60*time.Minute + 59*time.Second), Status: model.AppointmentStatusConfirmed},
			{ID: "apt_out", ScheduledAt: now.Add(61 * time.Minute), Status: model.AppointmentStatusConfirmed},
		},
	}
	db.EnsureMaps()

	due := Plan(db, now, time.UTC, DefaultReminderConfig())
	require.Len(t, due, 1)
	assert.Equal(t, "apt_edge", due[0].AppointmentID)
	assert.Equal(t, 60, due[0].Threshold)
}

func TestReminder_TargetsAppointmentParticipants(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))

	f.clock = time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC)
	fired, err := f.reminder.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, fired, 1)

	patient, err := f.notifs.List(ctx, model.RecipientPatient, "p1")
	require.NoError(t, err)
	require.Len(t, patient, 1)
	assert.Equal(t, "p1", patient[0].RecipientID)

	doctor, err := f.notifs.List(ctx, model.RecipientDoctor, "d1")
	require.NoError(t, err)
	require.Len(t, doctor, 1)
	assert.Equal(t, "d1", doctor[0].RecipientID)

	other, err := f.notifs.List(ctx, model.RecipientPatient, "p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReminderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ReminderConfig
		wantErr bool
	}{
		{name: "defaults", config: DefaultReminderConfig()},
		{name: "subset", config: ReminderConfig{Thresholds: []int{30, 15}, ShiftLead: 59}},
		{name: "untracked threshold", config: ReminderConfig{Thresholds: []int{60, 30, 10}, ShiftLead: 15}, wantErr: true},
		{name: "duplicate threshold", config: ReminderConfig{Thresholds: []int{30, 30}, ShiftLead: 15}, wantErr: true},
		{name: "shift lead of an hour", config: ReminderConfig{Thresholds: []int{60}, ShiftLead: 60}, wantErr: true},
		{name: "shift lead zero", config: ReminderConfig{Thresholds: []int{60}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewReminder_DropsUntrackedThresholds(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC))
	rem := NewReminder(f.store, f.notifs, ReminderConfig{Thresholds: []int{60, 30, 10}}, nil, nil)
	assert.Equal(t, []int{60, 30}, rem.config.Thresholds)

	total := 0
	f.clock = time.Date(2025, 1, 15, 4, 52, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		fired, err := rem.Tick(ctx)
		require.NoError(t, err)
		total += len(fired)
		f.clock = f.clock.Add(time.Minute)
	}
	assert.Equal(t, 1, total)
}

func TestNewReminder_LongShiftLeadFallsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t, time.Date(2025, 1, 15, 8, 40, 0, 0, time.UTC))
	rem := NewReminder(f.store, f.notifs, ReminderConfig{ShiftLead: 90}, nil, nil)
	assert.Equal(t, DefaultReminderConfig().ShiftLead, rem.config.ShiftLead)

	_, err := f.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		db.DoctorAvailability["d1"] = model.AvailabilityWindows{{StartHour: 9, EndHour: 10}, {StartHour: 10, EndHour: 12}}
		return nil
	})
	require.NoError(t, err)

	var keys []string
	for i := 0; i < 12; i++ {
		fired, err := rem.Tick(ctx)
		require.NoError(t, err)
		for _, d := range fired {
			keys = append(keys, d.DoctorID+"/"+d.DateKey)
		}
		f.clock = f.clock.Add(time.Minute)
	}
	assert.Equal(t, []string{"d1/2025-01-15_9"}, keys)
}
