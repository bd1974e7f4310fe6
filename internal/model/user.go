package model

import "time"

type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	TelegramID       int64
	Handle           string
	Username         string
	Email            string
	Role             Role
	Points           int64
	RegistrationDate time.Time
	AuthDate         time.Time
}

// HasRole reports whether the user's role is one of allowed.
func HasRole(user *User, allowed map[Role]struct{}) bool {
	if user == nil {
		return false
	}
	_, ok := allowed[user.Role]
	return ok
}

func RoleSet(roles ...Role) map[Role]struct{} {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

type Profile struct {
	User *User
	Gems int64
}
