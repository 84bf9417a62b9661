package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageBox tells whether a message was received or sent by the viewer.
type MessageBox string

const (
	BoxInbox MessageBox = "inbox"
	BoxSent  MessageBox = "sent"
)

type Message struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	SenderID      string    `json:"sender_id" gorm:"not null;size:255;index"`
	SenderName    string    `json:"sender_name" gorm:"not null;size:255"`
	SenderRole    UserRole  `json:"sender_role" gorm:"size:20"`
	RecipientID   string    `json:"recipient_id" gorm:"not null;size:255;index"`
	RecipientName string    `json:"recipient_name" gorm:"not null;size:255"`
	RecipientRole UserRole  `json:"recipient_role" gorm:"size:20"`
	Subject       string    `json:"subject" gorm:"not null;size:255"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	SentAt        time.Time `json:"sent_at" gorm:"index"`
	Read          bool      `json:"read" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	return nil
}

// UserMessage is a message as seen by one participant.
type UserMessage struct {
	Message
	Type MessageBox `json:"type"`
}
