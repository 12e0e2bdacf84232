package model

import "time"

type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusActive   CallStatus = "active"
	CallStatusEnded    CallStatus = "ended"
	CallStatusMissed   CallStatus = "missed"
	CallStatusDeclined CallStatus = "declined"
)

// Terminal reports whether no further transition is allowed.
func (s CallStatus) Terminal() bool {
	return s == CallStatusEnded || s == CallStatusMissed || s == CallStatusDeclined
}

type Call struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId,omitempty"`
	PatientID     string     `json:"patientId"`
	PatientName   string     `json:"patientName"`
	DoctorID      string     `json:"doctorId"`
	DoctorName    string     `json:"doctorName"`
	Status        CallStatus `json:"status"`
	StartedAt     *time.Time `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt"`
}

type StartCallRequest struct {
	AppointmentID string `json:"appointmentId"`
	PatientID     string `json:"patientId" binding:"required" validate:"required"`
	PatientName   string `json:"patientName" binding:"required" validate:"required,max=200"`
	DoctorID      string `json:"doctorId" binding:"required" validate:"required"`
	DoctorName    string `json:"doctorName" binding:"required" validate:"required,max=200"`
}
