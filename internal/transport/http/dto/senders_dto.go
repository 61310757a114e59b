package dto

import "time"

type SenderResponse struct {
	ChatID        int64     `json:"chat_id"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	VerifiedAt    time.Time `json:"verified_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
	IsBlocked     bool      `json:"is_blocked"`
}

type SendersResponse struct {
	Senders []SenderResponse `json:"senders"`
}

type BlockSenderRequest struct {
	Blocked bool   `json:"blocked"`
	Notes   string `json:"notes,omitempty"`
}
