package model

// Reminder thresholds in minutes, widest first.
var ReminderThresholds = []int{60, 30, 15}

// KnownThreshold reports whether ReminderFlags can record threshold.
func KnownThreshold(threshold int) bool {
	for _, t := range ReminderThresholds {
		if t == threshold {
			return true
		}
	}
	return false
}

// ReminderFlags records which thresholds already fired for one appointment.
// Flags only ever go from false to true.
type ReminderFlags struct {
	M60 bool `json:"m60,omitempty"`
	M30 bool `json:"m30,omitempty"`
	M15 bool `json:"m15,omitempty"`
}

// Fired reports whether the flag for threshold is set. Unknown thresholds are never set.
func (f ReminderFlags) Fired(threshold int) bool {
	switch threshold {
	case 60:
		return f.M60
	case 30:
		return f.M30
	case 15:
		return f.M15
	}
	return false
}

// Mark sets the flag for threshold.
func (f *ReminderFlags) Mark(threshold int) {
	switch threshold {
	case 60:
		f.M60 = true
	case 30:
		f.M30 = true
	case 15:
		f.M15 = true
	}
}

// TelemedDB is the whole persisted appointments/calls document.
type TelemedDB struct {
	Appointments       []Appointment                  `json:"appointments"`
	Calls              []Call                         `json:"calls"`
	DoctorAvailability map[string]AvailabilityWindows `json:"doctorAvailability"`
	ReminderFlags      map[string]ReminderFlags       `json:"reminderFlags"`
	ShiftReminder      map[string]string              `json:"shiftReminder"`
	SeedVersion        int                            `json:"seedVersion"`
}

// EnsureMaps fills nil maps so callers can write into them.
func (db *TelemedDB) EnsureMaps() {
	if db.Appointments == nil {
		db.Appointments = []Appointment{}
	}
	if db.Calls == nil {
		db.Calls = []Call{}
	}
	if db.DoctorAvailability == nil {
		db.DoctorAvailability = map[string]AvailabilityWindows{}
	}
	if db.ReminderFlags == nil {
		db.ReminderFlags = map[string]ReminderFlags{}
	}
	if db.ShiftReminder == nil {
		db.ShiftReminder = map[string]string{}
	}
}

func (db *TelemedDB) FindAppointment(id string) *Appointment {
	for i := range db.Appointments {
		if db.Appointments[i].ID == id {
			return &db.Appointments[i]
		}
	}
	return nil
}

func (db *TelemedDB) FindCall(id string) *Call {
	for i := range db.Calls {
		if db.Calls[i].ID == id {
			return &db.Calls[i]
		}
	}
	return nil
}

// OpenCallForPatient returns the patient's ringing or active call, if any.
func (db *TelemedDB) OpenCallForPatient(patientID string) *Call {
	for i := range db.Calls {
		c := &db.Calls[i]
		if c.PatientID == patientID && (c.Status == CallStatusRinging || c.Status == CallStatusActive) {
			return c
		}
	}
	return nil
}
