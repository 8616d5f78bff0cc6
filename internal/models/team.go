package models

import "time"

type Team struct {
	ID        string
	Name      string
	Avatar    string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
}

type TeamMemberRole string

const (
	TeamMemberRoleOwner  TeamMemberRole = "owner"
	TeamMemberRoleMember TeamMemberRole = "member"
)

type TeamMember struct {
	ID        string
	TeamID    string
	UserID    string
	Name      string
	Role      TeamMemberRole
	CreatedAt time.Time
}

// TeamMemberDetail joins a team member with its team, the shape login and
// register return to the client.
type TeamMemberDetail struct {
	MemberID   string
	MemberName string
	TeamID     string
	TeamName   string
	TeamAvatar string
	Balance    int64
	UserID     string
}
