package worker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/notification"
	"github.com/Karan-0412/nabha/internal/store"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

const (
	KindAppointment = "appointment"
	KindShift       = "shift"
)

type ReminderConfig struct {
	PollInterval time.Duration
	// Thresholds in minutes before an appointment.
	Thresholds []int
	// ShiftLead is how many minutes before a window opens the doctor is reminded.
	ShiftLead int
}

// MaxShiftLead keeps two hourly windows of one doctor from being due at once,
// since only one shift key is kept per doctor.
const MaxShiftLead = 59

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		PollInterval: 30 * time.Second,
		Thresholds:   append([]int(nil), model.ReminderThresholds...),
		ShiftLead:    15,
	}
}

// Validate rejects thresholds that ReminderFlags cannot record and shift leads
// outside 1..MaxShiftLead.
func (c ReminderConfig) Validate() error {
	seen := make(map[int]bool, len(c.Thresholds))
	for _, t := range c.Thresholds {
		if !model.KnownThreshold(t) {
			return fmt.Errorf("reminder threshold %d not one of %v", t, model.ReminderThresholds)
		}
		if seen[t] {
			return fmt.Errorf("duplicate reminder threshold %d", t)
		}
		seen[t] = true
	}
	if c.ShiftLead < 1 || c.ShiftLead > MaxShiftLead {
		return fmt.Errorf("shift lead must be within [1,%d], got %d", MaxShiftLead, c.ShiftLead)
	}
	return nil
}

// Due is one reminder that a tick decided to fire.
type Due struct {
	Kind          string
	AppointmentID string
	Threshold     int
	DoctorID      string
	DateKey       string
	Notifications []notification.Input
}

type Reminder struct {
	store    *store.Store
	notifSvc *notification.Service
	config   ReminderConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewReminder(st *store.Store, notifSvc *notification.Service, config ReminderConfig, log *logger.Logger, m *metrics.Metrics) *Reminder {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultReminderConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	known := make([]int, 0, len(config.Thresholds))
	for _, t := range config.Thresholds {
		if model.KnownThreshold(t) && !containsInt(known, t) {
			known = append(known, t)
			continue
		}
		log.Warn("Ignoring reminder threshold", "threshold", t)
	}
	if len(known) == 0 {
		known = def.Thresholds
	}
	config.Thresholds = known
	if config.ShiftLead < 1 || config.ShiftLead > MaxShiftLead {
		if config.ShiftLead != 0 {
			log.Warn("Ignoring shift lead", "shift_lead", config.ShiftLead)
		}
		config.ShiftLead = def.ShiftLead
	}
	if m == nil {
		m = metrics.New("telemed")
	}
	return &Reminder{
		store:    st,
		notifSvc: notifSvc,
		config:   config,
		logger:   log.WithFields(map[string]interface{}{"worker": "reminder"}),
		metrics:  m,
	}
}

// Start ticks once immediately and then every PollInterval until ctx is done.
func (r *Reminder) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("Starting reminder agent", "interval", r.config.PollInterval.String())
	r.run(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down reminder agent")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *Reminder) run(ctx context.Context) {
	if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error(err, "Reminder tick failed")
	}
}

// Tick fires every reminder due now. Flags are persisted before notifications
// go out, so a reminder is never emitted twice.
func (r *Reminder) Tick(ctx context.Context) ([]Due, error) {
	var fired []Due
	_, err := r.store.UpdateDB(ctx, func(db *model.TelemedDB) error {
		fired = Plan(db, r.store.Now(), r.store.Location(), r.config)
		if len(fired) == 0 {
			return store.ErrSkipWrite
		}
		for _, d := range fired {
			switch d.Kind {
			case KindAppointment:
				flags := db.ReminderFlags[d.AppointmentID]
				for _, t := range r.config.Thresholds {
					if t >= d.Threshold {
						flags.Mark(t)
					}
				}
				db.ReminderFlags[d.AppointmentID] = flags
			case KindShift:
				db.ShiftReminder[d.DoctorID] = d.DateKey
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record reminder flags: %w", err)
	}

	for _, d := range fired {
		for _, in := range d.Notifications {
			if _, err := r.notifSvc.Add(ctx, in); err != nil {
				r.logger.Error(err, "Failed to emit reminder", "kind", d.Kind, "title", in.Title)
			}
		}
		r.metrics.RemindersFired.WithLabelValues(reminderLabel(d)).Inc()
	}
	if len(fired) > 0 {
		r.logger.Debug("Reminders fired", "count", len(fired))
	}
	return fired, nil
}

// Plan returns the reminders due at now without touching db. db must have its
// maps filled.
func Plan(db *model.TelemedDB, now time.Time, loc *time.Location, cfg ReminderConfig) []Due {
	if loc == nil {
		loc = time.Local
	}
	thresholds := append([]int(nil), cfg.Thresholds...)
	sort.Ints(thresholds)

	var out []Due
	for _, apt := range db.Appointments {
		if apt.Status == model.AppointmentStatusCancelled {
			continue
		}
		m := minutesUntil(apt.ScheduledAt, now)
		if m < 0 {
			continue
		}

		tightest := -1
		for _, t := range thresholds {
			if m <= t {
				tightest = t
				break
			}
		}
		if tightest < 0 || db.ReminderFlags[apt.ID].Fired(tightest) {
			continue
		}

		msg := fmt.Sprintf("%s • %s", apt.PatientName, apt.DoctorName)
		if tightest == thresholds[len(thresholds)-1] {
			msg += " at " + apt.ScheduledAt.In(loc).Format("3:04 PM")
		}
		title := appointmentTitle(m)
		out = append(out, Due{
			Kind:          KindAppointment,
			AppointmentID: apt.ID,
			Threshold:     tightest,
			Notifications: []notification.Input{
				{
					Type:        model.NotificationTypeReminder,
					Title:       title,
					Message:     msg,
					Recipient:   model.RecipientPatient,
					RecipientID: apt.PatientID,
				},
				{
					Type:        model.NotificationTypeReminder,
					Title:       title,
					Message:     msg,
					Recipient:   model.RecipientDoctor,
					RecipientID: apt.DoctorID,
				},
			},
		})
	}

	doctors := make([]string, 0, len(db.DoctorAvailability))
	for id := range db.DoctorAvailability {
		doctors = append(doctors, id)
	}
	sort.Strings(doctors)

	local := now.In(loc)
	for _, doctorID := range doctors {
		for _, w := range db.DoctorAvailability[doctorID].Sanitize() {
			start := time.Date(local.Year(), local.Month(), local.Day(), w.StartHour, 0, 0, 0, loc)
			m := minutesUntil(start, now)
			if m < 0 || m > cfg.ShiftLead {
				continue
			}
			key := fmt.Sprintf("%s_%d", local.Format("2006-01-02"), w.StartHour)
			if db.ShiftReminder[doctorID] == key {
				continue
			}
			out = append(out, Due{
				Kind:     KindShift,
				DoctorID: doctorID,
				DateKey:  key,
				Notifications: []notification.Input{{
					Type:        model.NotificationTypeReminder,
					Title:       "Shift starts " + inMinutes(m),
					Message:     fmt.Sprintf("Your availability starts at %d:00", w.StartHour),
					Recipient:   model.RecipientDoctor,
					RecipientID: doctorID,
				}},
			})
			break
		}
	}
	return out
}

func appointmentTitle(m int) string {
	if m <= 0 {
		return "Appointment starting now"
	}
	return "Appointment " + inMinutes(m)
}

func inMinutes(m int) string {
	switch {
	case m <= 0:
		return "now"
	case m == 1:
		return "in 1 minute"
	}
	return fmt.Sprintf("in %d minutes", m)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func minutesUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Minutes()))
}

func reminderLabel(d Due) string {
	if d.Kind == KindShift {
		return KindShift
	}
	return fmt.Sprintf("m%d", d.Threshold)
}
