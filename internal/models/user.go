package models

import "time"

// AdminUser can log in to the management API. Passwords are bcrypt hashes.
type AdminUser struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:100;not null;unique"`
	PasswordHash string `gorm:"size:200;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
