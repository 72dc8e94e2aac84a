package models

import "time"

// Notification type ids, seeded at startup.
const (
	NotificationReportStatusChange uint = 1
	NotificationNewComment         uint = 2
	NotificationReportTrending     uint = 3
	NotificationSystemAnnouncement uint = 4
	NotificationAdminMessage       uint = 5
)

// NotificationTypeConstants maps the public constant names to their ids.
var NotificationTypeConstants = map[string]uint{
	"REPORT_STATUS_CHANGE":  NotificationReportStatusChange,
	"NEW_COMMENT_ON_REPORT": NotificationNewComment,
	"REPORT_TRENDING":       NotificationReportTrending,
	"SYSTEM_ANNOUNCEMENT":   NotificationSystemAnnouncement,
	"ADMIN_MESSAGE":         NotificationAdminMessage,
}

type NotificationType struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Notification struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"index:idx_notification_user_read;not null" json:"user_id"`
	NotificationTypeID uint      `gorm:"index;not null" json:"notification_type_id"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	Message            string    `gorm:"size:1000;not null" json:"message"`
	RelatedID          *uint     `json:"related_id"`
	IsRead             bool      `gorm:"index:idx_notification_user_read;not null;default:false" json:"is_read"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Filled only by queries joining notification_types.
	TypeName        string `gorm:"->;-:migration" json:"type_name,omitempty"`
	TypeDescription string `gorm:"->;-:migration" json:"type_description,omitempty"`
}

type UserNotificationPreference struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex:idx_pref_user_type" json:"user_id"`
	NotificationTypeID uint      `gorm:"not null;uniqueIndex:idx_pref_user_type" json:"notification_type_id"`
	Enabled            bool      `gorm:"not null" json:"enabled"`
	EmailEnabled       bool      `gorm:"not null" json:"email_enabled"`
	PushEnabled        bool      `gorm:"not null" json:"push_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
