package model

import "time"

// Conversation диалог инструктора и ученика, одна пара — один диалог
type Conversation struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindAppointment MessageKind = "appointment" // системное сообщение о событии записи
)

type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	SenderID       int64       `json:"sender_id"`
	ReceiverID     int64       `json:"receiver_id"`
	Content        string      `json:"content"`
	Kind           MessageKind `json:"kind"`
	CreatedAt      time.Time   `json:"created_at"`
}
