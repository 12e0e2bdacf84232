package model

import "time"

type Sender string

const (
	SenderPatient   Sender = "patient"
	SenderDoctor    Sender = "doctor"
	SenderSystem    Sender = "system"
	SenderAssistant Sender = "assistant"
	SenderUser      Sender = "user"
)

type RoomType string

const (
	RoomTypePatient RoomType = "patient"
	RoomTypeDoctor  RoomType = "doctor"
	RoomTypeAI      RoomType = "ai"
	RoomTypeSystem  RoomType = "system"
)

type ChatRoom struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type RoomType `json:"type"`
}

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagesDocument is the persisted chat state.
type MessagesDocument struct {
	Rooms    []ChatRoom `json:"rooms"`
	Messages []Message  `json:"messages"`
}

// PatientRoomID is the thread a patient shares with their care team.
func PatientRoomID(patientID string) string {
	return "patient-" + patientID
}

// AssistantRoomID is a user's thread with the AI assistant.
func AssistantRoomID(userID string) string {
	return "ai-" + userID
}

type CreateRoomRequest struct {
	ID   string   `json:"id" binding:"required" validate:"required,max=100"`
	Name string   `json:"name" binding:"required" validate:"required,max=200"`
	Type RoomType `json:"type" binding:"required" validate:"required,oneof=patient doctor ai system"`
}

type SendMessageRequest struct {
	Sender Sender `json:"sender" binding:"required" validate:"required,oneof=patient doctor system assistant user"`
	Text   string `json:"text" binding:"required" validate:"required,max=4000"`
}
