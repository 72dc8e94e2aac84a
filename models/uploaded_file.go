package models

import "time"

// UploadedFile records a stored upload and who sent it.
type UploadedFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	Path        string    `gorm:"size:1024;not null" json:"path"` // public URL like /public/uploads/...
	Storage     string    `gorm:"size:16;not null" json:"storage"`
	Size        int64     `json:"size"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
