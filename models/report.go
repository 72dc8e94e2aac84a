package models

import (
	"time"

	"gorm.io/gorm"
)

// Report status ids. They are seeded at startup and referenced by search filters.
const (
	StatusPending    uint = 1
	StatusInProgress uint = 2
	StatusCompleted  uint = 3
	StatusRejected   uint = 4
)

var (
	// ActiveStatusIDs are statuses of reports still under review.
	ActiveStatusIDs = []uint{StatusPending, StatusInProgress}
	// CompletedStatusIDs are terminal statuses.
	CompletedStatusIDs = []uint{StatusCompleted, StatusRejected}
)

// ReportStatus is a row of the status lookup table.
type ReportStatus struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

// Report is a submitted fraud/phishing claim about a URL.
type Report struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index;not null" json:"user_id"`
	CategoryID     uint       `gorm:"index;not null" json:"category_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	URL            string     `gorm:"column:url;size:768;not null;index" json:"url"`
	StatusID       uint       `gorm:"index;not null;default:1" json:"status_id"`
	ImageURL       string     `gorm:"size:1024" json:"image_url"`
	VoteCount      int        `gorm:"not null;default:0" json:"vote_count"`
	CommentCount   int        `gorm:"not null;default:0" json:"comment_count"`
	ModeratorID    *uint      `json:"moderator_id,omitempty"`
	ModerationNote string     `gorm:"type:text" json:"moderation_note,omitempty"`
	ModeratedAt    *time.Time `json:"moderated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Filled only by queries joining report_statuses.
	StatusName        string `gorm:"->;-:migration" json:"status_name,omitempty"`
	StatusDescription string `gorm:"->;-:migration" json:"status_description,omitempty"`

	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	User     *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Tags     []Tag     `gorm:"many2many:report_tags;" json:"tags,omitempty"`
}

// BeforeCreate defaults the status to pending.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.StatusID == 0 {
		r.StatusID = StatusPending
	}
	return nil
}

// ReportStatusHistory is an audit row written on every moderation.
type ReportStatusHistory struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ReportID         uint      `gorm:"index;not null" json:"report_id"`
	PreviousStatusID uint      `gorm:"not null" json:"previous_status_id"`
	NewStatusID      uint      `gorm:"not null" json:"new_status_id"`
	Note             string    `gorm:"type:text" json:"note"`
	Reason           string    `gorm:"size:255" json:"reason"`
	ChangedBy        uint      `gorm:"index;not null" json:"changed_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReportVote keeps one vote per user per report.
type ReportVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"not null;uniqueIndex:idx_vote_report_user" json:"report_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_report_user" json:"user_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
