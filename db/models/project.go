package models

import "gorm.io/gorm"

func init() {
	registerModel(&Project{})
}

type Project struct {
	gorm.Model
	UserID      uint `gorm:"index"`
	User        User
	Name        string `gorm:"type:varchar(255);not null"`
	Description string
	Uploads     []Upload
	Jobs        []ReconstructionJob
}
