package domain

import "time"

// Token is an opaque bearer credential bound to exactly one user. A user
// may hold several at once (multi-device); each is revoked independently
// by deleting the record.
type Token struct {
	ID         string    `bson:"_id"         json:"id"`
	TokenValue string    `bson:"token_value" json:"token_value"`
	UserID     string    `bson:"user_id"     json:"user_id"`
	ExpiresAt  time.Time `bson:"expires_at"  json:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"  json:"created_at"`
}
