package models

import "time"

type MessageStatus string

const (
	MessageUnread MessageStatus = "unread"
	MessageRead   MessageStatus = "read"
)

// Message is a contact-form submission
type Message struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone,omitempty"`
	Subject string        `json:"subject"`
	Message string        `json:"message"`
	Date    time.Time     `json:"date"`
	Status  MessageStatus `json:"status"`
}

// MessageDraft is the body of POST /api/messages
type MessageDraft struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}
