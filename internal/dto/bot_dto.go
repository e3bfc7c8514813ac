package dto

import (
	"encoding/json"
	"time"
)

// BotEventRequest is one classified chat update posted by the gateway.
type BotEventRequest struct {
	UserId    string          `json:"user_id" validate:"required,max=64"`
	Kind      string          `json:"kind" validate:"required,oneof=text command location file"`
	Text      string          `json:"text" validate:"max=4096"`
	Command   string          `json:"command" validate:"required_if=Kind command,max=64"`
	Args      string          `json:"args" validate:"max=1024"`
	Latitude  *float64        `json:"latitude" validate:"required_if=Kind location,omitempty,latitude"`
	Longitude *float64        `json:"longitude" validate:"required_if=Kind location,omitempty,longitude"`
	File      *BotFileRequest `json:"file" validate:"required_if=Kind file,omitempty"`
}

type BotFileRequest struct {
	Id       string `json:"id"`
	Name     string `json:"name" validate:"required,max=255"`
	Path     string `json:"path" validate:"required"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size" validate:"gte=0"`
}

type BotReplyResponse struct {
	UserId   string   `json:"user_id"`
	Mode     string   `json:"mode"`
	Text     string   `json:"text"`
	Keyboard []string `json:"keyboard,omitempty"`
	Rejected bool     `json:"rejected"`
	Results  []string `json:"results,omitempty"`
}

type SessionResponse struct {
	UserId         string     `json:"user_id"`
	CurrentMode    string     `json:"current_mode"`
	PreviousMode   string     `json:"previous_mode,omitempty"`
	Step           string     `json:"step,omitempty"`
	EnteredAt      *time.Time `json:"entered_at,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// BotReplyMessage is what the reply stream carries to chat gateways.
type BotReplyMessage struct {
	UserId   string    `json:"user_id"`
	Text     string    `json:"text"`
	Keyboard []string  `json:"keyboard,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// PublishFeatureResultMessage travels on the results topic to the consumer
// that stores it.
type PublishFeatureResultMessage struct {
	UserId     string          `json:"user_id"`
	Mode       string          `json:"mode"`
	ResultType string          `json:"result_type"`
	Payload    json.RawMessage `json:"payload"`
	ProducedAt time.Time       `json:"produced_at"`
}

type FeatureResultResponse struct {
	Id         string          `json:"id"`
	Mode       string          `json:"mode"`
	ResultType string          `json:"result_type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
