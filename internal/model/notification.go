package model

import "time"

type NotificationType string

const (
	NotificationTypeAppointment NotificationType = "appointment"
	NotificationTypeMessage     NotificationType = "message"
	NotificationTypeReminder    NotificationType = "reminder"
	NotificationTypeCall        NotificationType = "call"
)

type Recipient string

const (
	RecipientPatient Recipient = "patient"
	RecipientDoctor  Recipient = "doctor"
	RecipientAll     Recipient = "all"
	// RecipientAny only appears in queries and matches every notification.
	RecipientAny Recipient = "any"
)

type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Timestamp   time.Time        `json:"timestamp"`
	Read        bool             `json:"read"`
	Recipient   Recipient        `json:"recipient"`
	RecipientID string           `json:"recipientId,omitempty"`
}

// VisibleTo reports whether the notification targets the given recipient and
// user. An empty userID matches any targeted user.
func (n *Notification) VisibleTo(r Recipient, userID string) bool {
	if r != RecipientAny && n.Recipient != RecipientAll && n.Recipient != r {
		return false
	}
	return n.RecipientID == "" || userID == "" || n.RecipientID == userID
}

// NotificationsDocument is the persisted notification list, newest first.
type NotificationsDocument struct {
	Notifications []Notification `json:"notifications"`
}
