package domain

import "time"

type ID string

type User struct {
	ID           ID
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Changes holds a partial profile update. Nil fields are left untouched.
type Changes struct {
	Email     *string
	Username  *string
	UpdatedAt time.Time
}
