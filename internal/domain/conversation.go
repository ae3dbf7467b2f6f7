package domain

import "time"

// Turn is a single user/bot exchange.
type Turn struct {
	SessionID string    `json:"sessionId"`
	UserText  string    `json:"userText"`
	BotText   string    `json:"botText"`
	Timestamp time.Time `json:"timestamp"`
}
