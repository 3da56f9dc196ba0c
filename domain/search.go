package domain

import "time"

// SearchHit is one message matching a full text query.
type SearchHit struct {
	MessageID string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Score     float64   `json:"score"`
}
