package store

import (
	"context"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
)

// CurrentSeedVersion is the schema version written by this build.
const CurrentSeedVersion = 3

// Seed builds the fixture database: two appointments for Dr. Johnson, no
// calls, and availability for three doctors.
func Seed(now time.Time, loc *time.Location) *model.TelemedDB {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	soon := local.Add(2 * time.Hour)
	later := time.Date(local.Year(), local.Month(), local.Day()+1, 10, 0, 0, 0, loc)

	db := &model.TelemedDB{
		Appointments: []model.Appointment{
			{
				ID:              model.NewID(model.PrefixAppointment),
				PatientID:       "p1",
				PatientName:     "Jane Smith",
				DoctorID:        "d1",
				DoctorName:      "Dr. Johnson",
				ScheduledAt:     soon.UTC(),
				Type:            model.AppointmentTypeVideo,
				Status:          model.AppointmentStatusConfirmed,
				DurationMinutes: 30,
			},
			{
				ID:              model.NewID(model.PrefixAppointment),
				PatientID:       "p2",
				PatientName:     "John Doe",
				DoctorID:        "d1",
				DoctorName:      "Dr. Johnson",
				ScheduledAt:     later.UTC(),
				Type:            model.AppointmentTypeVideo,
				Status:          model.AppointmentStatusPending,
				DurationMinutes: 30,
			},
		},
		Calls: []model.Call{},
		DoctorAvailability: map[string]model.AvailabilityWindows{
			"d1": {{StartHour: 9, EndHour: 12}, {StartHour: 13, EndHour: 17}},
			"d2": {{StartHour: 10, EndHour: 18}},
			"d3": {{StartHour: 8, EndHour: 16}},
		},
		ReminderFlags: map[string]model.ReminderFlags{},
		ShiftReminder: map[string]string{},
		SeedVersion:   CurrentSeedVersion,
	}
	return db
}

func (s *Store) writeSeed(ctx context.Context, expectedRevision int64) (*model.TelemedDB, int64, error) {
	db := Seed(s.Now(), s.cfg.Location)
	rev, err := s.put(ctx, KeyDB, db, expectedRevision)
	if err != nil {
		return nil, 0, err
	}
	return db, rev, nil
}
