package user

import (
	"time"
)

// DefaultUsername is used in messages when the record carries no username.
const DefaultUsername = "User"

// User is the subset of the account record this service reads and updates.
// Records are created by the registration flow; only Verified and UpdatedAt
// are written here.
type User struct {
	ID        string    `json:"userId" db:"id"`
	Email     string    `json:"email" db:"email"`
	Username  string    `json:"username" db:"username"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns the username or DefaultUsername when empty.
func (u *User) DisplayName() string {
	if u == nil || u.Username == "" {
		return DefaultUsername
	}
	return u.Username
}
