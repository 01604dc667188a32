package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	HashedPassword string    `json:"-" db:"password_hash"`
	DateJoined     time.Time `json:"dateJoined" db:"date_joined"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

func (u *User) String() string {
	return u.Username
}

// Is reports whether u and other refer to the same stored user.
func (u *User) Is(other *User) bool {
	return u != nil && other != nil && u.ID == other.ID
}

// SetPassword stores a bcrypt hash of raw.
func (u *User) SetPassword(raw string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.HashedPassword = string(hashedPassword)
	return nil
}

// CheckPassword compares raw against the stored hash.
func (u *User) CheckPassword(raw string) bool {
	if u.HashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(raw)) == nil
}
