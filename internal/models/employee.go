package models

import "time"

// Employee is the assignment key for file work. UserID links the login account.
type Employee struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Shift     string    `json:"shift"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a job operation
type Actor struct {
	UserID      int      `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"` // admin or employee
	Permissions []string `json:"permissions"`
}
