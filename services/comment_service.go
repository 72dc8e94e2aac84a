package services

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

// CommentInput is a new comment on a report.
type CommentInput struct {
	ReportID uint
	UserID   uint
	Title    string
	Content  string
	ImageURL string
}

// UpdateCommentInput keeps stored values for nil or blank fields.
type UpdateCommentInput struct {
	Title    *string
	Content  *string
	ImageURL *string
}

// CommentView is a comment with its markdown rendered.
type CommentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
}

func viewOf(c models.Comment) CommentView {
	return CommentView{Comment: c, ContentHTML: utils.RenderMarkdown(c.Content)}
}

// CommentService manages comments and keeps report comment counters in step.
type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, notifications: notifications}
}

// Create stores a comment, bumps the report counter and notifies the report
// owner when someone else commented.
func (s *CommentService) Create(in CommentInput) (*CommentView, error) {
	if in.ReportID == 0 {
		return nil, BadRequest(40030, "invalid report id")
	}
	if in.UserID == 0 {
		return nil, Unauthorized(40110, "unauthorized")
	}
	content := utils.SanitizeText(in.Content)
	if content == "" {
		return nil, BadRequest(40031, "content cannot be empty")
	}

	var report models.Report
	if err := s.db.First(&report, in.ReportID).Error; err != nil {
		return nil, notFoundOr(err, 40410, "report not found", 50011, "failed to load report")
	}

	c := models.Comment{
		ReportID: in.ReportID,
		UserID:   in.UserID,
		Title:    utils.SanitizeText(in.Title),
		Content:  content,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Report{}).Where("id = ?", in.ReportID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, wrapInternal(err, 50030, "failed to create comment")
	}
	invalidateReportLists()

	if report.UserID != in.UserID && s.notifications != nil {
		var author models.User
		name := "Someone"
		if err := s.db.Select("name").First(&author, in.UserID).Error; err == nil && author.Name != "" {
			name = author.Name
		}
		if err := s.notifications.NotifyNewComment(report.UserID, report.ID, reportLabel(&report), name); err != nil {
			logWarn("new comment notification failed", err, zap.Uint("report_id", report.ID))
		}
	}
	return s.Get(c.ID)
}

// Get loads one comment with its author.
func (s *CommentService) Get(id uint) (*CommentView, error) {
	if id == 0 {
		return nil, BadRequest(40032, "invalid comment id")
	}
	var c models.Comment
	if err := s.db.Preload("User").First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, 40430, "comment not found", 50031, "failed to load comment")
	}
	v := viewOf(c)
	return &v, nil
}

// ByReport lists a report's comments oldest first.
func (s *CommentService) ByReport(reportID uint) ([]CommentView, error) {
	if reportID == 0 {
		return nil, BadRequest(40030, "invalid report id")
	}
	var rows []models.Comment
	err := s.db.Preload("User").Where("report_id = ?", reportID).
		Order("created_at ASC").Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, wrapInternal(err, 50031, "failed to load comments")
	}
	out := make([]CommentView, 0, len(rows))
	for _, c := range rows {
		out = append(out, viewOf(c))
	}
	return out, nil
}

func (s *CommentService) owned(id, actorID uint, isAdmin bool) (*models.Comment, error) {
	if id == 0 {
		return nil, BadRequest(40032, "invalid comment id")
	}
	var c models.Comment
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, 40430, "comment not found", 50031, "failed to load comment")
	}
	if c.UserID != actorID && !isAdmin {
		return nil, Forbidden(40330, "you can only modify your own comments")
	}
	return &c, nil
}

// Update changes a comment for its author or an admin.
func (s *CommentService) Update(id, actorID uint, isAdmin bool, in UpdateCommentInput) (*CommentView, error) {
	if _, err := s.owned(id, actorID, isAdmin); err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if in.Title != nil {
		if t := utils.SanitizeText(*in.Title); t != "" {
			changes["title"] = t
		}
	}
	if in.Content != nil {
		if c := utils.SanitizeText(*in.Content); c != "" {
			changes["content"] = c
		}
	}
	if in.ImageURL != nil {
		changes["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if len(changes) > 0 {
		changes["updated_at"] = time.Now()
		if err := s.db.Model(&models.Comment{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, wrapInternal(err, 50032, "failed to update comment")
		}
	}
	return s.Get(id)
}

// Delete removes a comment and decrements the report counter, never below zero.
func (s *CommentService) Delete(id, actorID uint, isAdmin bool) error {
	c, err := s.owned(id, actorID, isAdmin)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Report{}).
			Where("id = ? AND comment_count > 0", c.ReportID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(40430, "comment not found")
	}
	if err != nil {
		return wrapInternal(err, 50033, "failed to delete comment")
	}
	invalidateReportLists()
	return nil
}
