package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/Karan-0412/nabha/internal/email"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/store"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

const mailTimeout = 10 * time.Second

// Input is a notification before it gets an id and timestamp.
type Input struct {
	Type        model.NotificationType
	Title       string
	Message     string
	Recipient   model.Recipient
	RecipientID string
	Read        bool
}

// MailConfig maps recipient roles to mail addresses. Empty addresses are skipped.
type MailConfig struct {
	PatientAddress string
	DoctorAddress  string
}

type Service struct {
	store   *store.Store
	mailer  email.Service
	mail    MailConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewService builds the notification service. mailer may be nil to disable forwarding.
func NewService(st *store.Store, mailer email.Service, mail MailConfig, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("telemed")
	}
	return &Service{
		store:   st,
		mailer:  mailer,
		mail:    mail,
		logger:  log,
		metrics: m,
	}
}

// Add stores a new notification at the head of the list.
func (s *Service) Add(ctx context.Context, in Input) (*model.Notification, error) {
	if in.Recipient == "" {
		in.Recipient = model.RecipientAll
	}
	item := model.Notification{
		ID:          model.NewID(model.PrefixNotification),
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		Timestamp:   s.store.Now().UTC(),
		Read:        in.Read,
		Recipient:   in.Recipient,
		RecipientID: in.RecipientID,
	}

	_, err := s.store.UpdateNotifications(ctx, func(doc *model.NotificationsDocument) error {
		doc.Notifications = append([]model.Notification{item}, doc.Notifications...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add notification: %w", err)
	}

	s.metrics.NotificationsEmitted.WithLabelValues(string(item.Type), string(item.Recipient)).Inc()
	s.forward(item)
	return &item, nil
}

// MarkRead flags one notification as read. Unknown ids are ignored.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	_, err := s.store.UpdateNotifications(ctx, func(doc *model.NotificationsDocument) error {
		for i := range doc.Notifications {
			if doc.Notifications[i].ID == id {
				if doc.Notifications[i].Read {
					return store.ErrSkipWrite
				}
				doc.Notifications[i].Read = true
				return nil
			}
		}
		return store.ErrSkipWrite
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread notification visible to recipient/userID and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, recipient model.Recipient, userID string) (int, error) {
	changed := 0
	_, err := s.store.UpdateNotifications(ctx, func(doc *model.NotificationsDocument) error {
		changed = 0
		for i := range doc.Notifications {
			n := &doc.Notifications[i]
			if !n.Read && n.VisibleTo(recipient, userID) {
				n.Read = true
				changed++
			}
		}
		if changed == 0 {
			return store.ErrSkipWrite
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return changed, nil
}

// List returns notifications for recipient, or all of them for RecipientAny,
// newest first. A non-empty userID also drops items addressed to someone else.
func (s *Service) List(ctx context.Context, recipient model.Recipient, userID string) ([]model.Notification, error) {
	doc, err := s.store.ReadNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	items := make([]model.Notification, 0, len(doc.Notifications))
	for _, n := range doc.Notifications {
		if n.VisibleTo(recipient, userID) {
			items = append(items, n)
		}
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipient model.Recipient, userID string) (int, error) {
	items, err := s.List(ctx, recipient, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// forward mails reminder and call notifications. Delivery is best effort.
func (s *Service) forward(n model.Notification) {
	if s.mailer == nil {
		return
	}
	if n.Type != model.NotificationTypeReminder && n.Type != model.NotificationTypeCall {
		return
	}

	var to []string
	if (n.Recipient == model.RecipientPatient || n.Recipient == model.RecipientAll) && s.mail.PatientAddress != "" {
		to = append(to, s.mail.PatientAddress)
	}
	if (n.Recipient == model.RecipientDoctor || n.Recipient == model.RecipientAll) && s.mail.DoctorAddress != "" {
		to = append(to, s.mail.DoctorAddress)
	}
	if len(to) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		for _, addr := range to {
			if err := s.mailer.SendCustom(ctx, addr, n.Title, n.Message); err != nil {
				s.logger.Error(err, "Failed to forward notification", "notification_id", n.ID, "to", addr)
			}
		}
	}()
}
