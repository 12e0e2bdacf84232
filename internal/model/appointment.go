package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentType string

const (
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypePhone    AppointmentType = "phone"
	AppointmentTypeInPerson AppointmentType = "in-person"
)

type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patientId"`
	PatientName     string            `json:"patientName"`
	DoctorID        string            `json:"doctorId"`
	DoctorName      string            `json:"doctorName"`
	ScheduledAt     time.Time         `json:"scheduledAt"`
	Type            AppointmentType   `json:"type"`
	Status          AppointmentStatus `json:"status"`
	DurationMinutes int               `json:"durationMinutes,omitempty"`
	CancelReason    string            `json:"cancelReason,omitempty"`
}

// InvolvesUser reports whether userID is the patient or the doctor.
func (a *Appointment) InvolvesUser(id Identity) bool {
	switch id.Role {
	case RolePatient:
		return a.PatientID == id.UserID
	case RoleDoctor:
		return a.DoctorID == id.UserID
	}
	return false
}

type CreateAppointmentRequest struct {
	PatientID       string            `json:"patientId" binding:"required" validate:"required"`
	PatientName     string            `json:"patientName" binding:"required" validate:"required,max=200"`
	DoctorID        string            `json:"doctorId" binding:"required" validate:"required"`
	DoctorName      string            `json:"doctorName" binding:"required" validate:"required,max=200"`
	ScheduledAt     time.Time         `json:"scheduledAt" binding:"required" validate:"required"`
	Type            AppointmentType   `json:"type" validate:"omitempty,oneof=video phone in-person"`
	Status          AppointmentStatus `json:"status" validate:"omitempty,oneof=confirmed pending cancelled"`
	DurationMinutes int               `json:"durationMinutes" validate:"gte=0,lte=480"`
}

type RejectAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
