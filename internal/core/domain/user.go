package domain

import "time"

// User models a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the redacted view of a User returned to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public strips the credential fields from u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
