package models

import "time"

type Session struct {
	ID           string
	UserID       string
	TeamID       string
	TeamMemberID string
	IsRoot       bool
	ClientIP     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
