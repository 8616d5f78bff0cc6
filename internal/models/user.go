package models

import "time"

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusForbidden UserStatus = "forbidden"
)

// RootUsername is the built-in administrator account. Its status can never
// be changed through the admin endpoints.
const RootUsername = "root"

type User struct {
	ID                string
	Username          string
	Email             *string
	PasswordHash      string
	Avatar            string
	Timezone          string
	Status            UserStatus
	InviterID         *string
	LastLoginMemberID *string
	PasswordUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u User) IsRoot() bool {
	return u.Username == RootUsername
}
