package message

import (
	"context"
	"fmt"
	"sort"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// AddMessage appends a message to roomID. The room does not need to exist.
func (s *Service) AddMessage(ctx context.Context, roomID string, sender model.Sender, text string) (*model.Message, error) {
	if roomID == "" {
		return nil, apperrors.BadRequest("room id is required", nil)
	}
	msg := model.Message{
		ID:        model.NewID(model.PrefixMessage),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: s.store.Now().UTC(),
	}

	_, err := s.store.UpdateMessages(ctx, func(doc *model.MessagesDocument) error {
		doc.Messages = append(doc.Messages, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	return &msg, nil
}

// MessagesForRoom returns the room's messages oldest first.
func (s *Service) MessagesForRoom(ctx context.Context, roomID string) ([]model.Message, error) {
	doc, err := s.store.ReadMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	msgs := make([]model.Message, 0)
	for _, m := range doc.Messages {
		if m.RoomID == roomID {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}

// EnsureRoom returns the room with id, creating it when absent.
func (s *Service) EnsureRoom(ctx context.Context, id, name string, roomType model.RoomType) (*model.ChatRoom, error) {
	if roomType == "" {
		roomType = model.RoomTypePatient
	}

	var room model.ChatRoom
	_, err := s.store.UpdateMessages(ctx, func(doc *model.MessagesDocument) error {
		for _, r := range doc.Rooms {
			if r.ID == id {
				room = r
				return store.ErrSkipWrite
			}
		}
		room = model.ChatRoom{ID: id, Name: name, Type: roomType}
		doc.Rooms = append(doc.Rooms, room)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure room: %w", err)
	}
	return &room, nil
}

func (s *Service) Rooms(ctx context.Context) ([]model.ChatRoom, error) {
	doc, err := s.store.ReadMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms: %w", err)
	}
	return append([]model.ChatRoom{}, doc.Rooms...), nil
}
