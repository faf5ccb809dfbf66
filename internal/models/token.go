package models

import "time"

// RevokedToken records an access token that was logged out before it expired.
// Rows past ExpiresAt can be purged since the token would be rejected anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenHash string    `gorm:"uniqueIndex;size:64"`
	Subject   string    `gorm:"index;size:255"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
