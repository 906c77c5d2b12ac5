package models

import "gorm.io/gorm"

func init() {
	registerModel(&Upload{})
}

// Upload records a photo-set ZIP (and optional GPS CSV) that has landed in
// the portal bucket.
type Upload struct {
	gorm.Model
	UserID     uint `gorm:"index"`
	User       User
	ProjectID  uint `gorm:"index"`
	Project    Project
	ZipKey     string `gorm:"not null"`
	GpsCsvKey  string
	Size       uint64
	MimeType   string
	UploaderIP string
}
