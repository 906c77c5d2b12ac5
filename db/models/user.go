package models

import (
	"time"

	"gorm.io/gorm"
)

func init() {
	registerModel(&User{})
}

type User struct {
	gorm.Model
	FirstName    string
	LastName     string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string
	Projects     []Project
	Uploads      []Upload
	LastLogin    *time.Time
	LastLoginIP  string
}
