package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

const (
	maxNotificationTitle   = 255
	maxNotificationMessage = 1000
	maxNotificationPage    = 100
)

// DefaultNotificationLimit is the page size when none is requested.
const DefaultNotificationLimit = 50

// NotificationInput is one notification to deliver.
type NotificationInput struct {
	UserID    uint   `json:"user_id"`
	TypeID    uint   `json:"type_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RelatedID *uint  `json:"related_id,omitempty"`
}

// PreferenceInput is a requested preference row for one notification type.
type PreferenceInput struct {
	TypeID       uint `json:"type_id"`
	Enabled      bool `json:"enabled"`
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

// Wants is what a user accepts for one type. A missing preference means everything.
type Wants struct {
	Enabled      bool `json:"enabled"`
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

// NotificationSummary aggregates a user's inbox.
type NotificationSummary struct {
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
	Recent []models.Notification `json:"recent"`
}

// NotificationService stores user notifications and their delivery preferences.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) withType() *gorm.DB {
	return s.db.Model(&models.Notification{}).
		Select("notifications.*, notification_types.name AS type_name, notification_types.description AS type_description").
		Joins("JOIN notification_types ON notification_types.id = notifications.notification_type_id")
}

func validateNotification(in *NotificationInput) error {
	if in.UserID == 0 {
		return BadRequest(40060, "invalid user id")
	}
	if in.TypeID == 0 {
		return BadRequest(40061, "invalid notification type id")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" {
		return BadRequest(40062, "title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxNotificationTitle {
		return BadRequest(40063, fmt.Sprintf("title cannot exceed %d characters", maxNotificationTitle))
	}
	if in.Message == "" {
		return BadRequest(40064, "message is required")
	}
	if utf8.RuneCountInString(in.Message) > maxNotificationMessage {
		return BadRequest(40065, fmt.Sprintf("message cannot exceed %d characters", maxNotificationMessage))
	}
	return nil
}

// activeType loads an active notification type or fails with 400.
func (s *NotificationService) activeType(id uint) (*models.NotificationType, error) {
	var nt models.NotificationType
	if err := s.db.First(&nt, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, BadRequest(40066, "invalid or inactive notification type")
		}
		return nil, wrapInternal(err, 50060, "failed to load notification type")
	}
	if !nt.IsActive {
		return nil, BadRequest(40066, "invalid or inactive notification type")
	}
	return &nt, nil
}

// recipientExists reports whether a user row exists for id.
func (s *NotificationService) recipientExists(id uint) (bool, error) {
	var n int64
	if err := s.db.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, wrapInternal(err, 50071, "failed to load recipient")
	}
	return n > 0, nil
}

// Create validates and stores one notification. It returns (nil, nil) when the
// recipient disabled the type.
func (s *NotificationService) Create(in NotificationInput) (*models.Notification, error) {
	if err := validateNotification(&in); err != nil {
		return nil, err
	}
	if _, err := s.activeType(in.TypeID); err != nil {
		return nil, err
	}
	ok, err := s.recipientExists(in.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFound(40462, "recipient not found")
	}
	wants, err := s.UserWants(in.UserID, in.TypeID)
	if err != nil {
		return nil, err
	}
	if !wants.Enabled {
		return nil, nil
	}

	n := models.Notification{
		UserID:             in.UserID,
		NotificationTypeID: in.TypeID,
		Title:              in.Title,
		Message:            in.Message,
		RelatedID:          in.RelatedID,
	}
	if err := s.db.Create(&n).Error; err != nil {
		return nil, wrapInternal(err, 50061, "failed to create notification")
	}
	if wants.EmailEnabled {
		s.mailCopy(n)
	}
	return &n, nil
}

// CreateBulk skips invalid entries and those the recipient opted out of, then
// inserts the rest in one batch. It returns how many rows were written.
func (s *NotificationService) CreateBulk(items []NotificationInput) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	activeTypes := map[uint]bool{}
	recipients := map[uint]bool{}
	rows := make([]models.Notification, 0, len(items))
	mailed := make([]bool, 0, len(items))
	for _, in := range items {
		if validateNotification(&in) != nil {
			continue
		}
		active, seen := activeTypes[in.TypeID]
		if !seen {
			_, err := s.activeType(in.TypeID)
			active = err == nil
			activeTypes[in.TypeID] = active
		}
		if !active {
			continue
		}
		exists, seen := recipients[in.UserID]
		if !seen {
			var err error
			if exists, err = s.recipientExists(in.UserID); err != nil {
				return 0, err
			}
			recipients[in.UserID] = exists
		}
		if !exists {
			continue
		}
		wants, err := s.UserWants(in.UserID, in.TypeID)
		if err != nil {
			return 0, err
		}
		if !wants.Enabled {
			continue
		}
		rows = append(rows, models.Notification{
			UserID:             in.UserID,
			NotificationTypeID: in.TypeID,
			Title:              in.Title,
			Message:            in.Message,
			RelatedID:          in.RelatedID,
		})
		mailed = append(mailed, wants.EmailEnabled)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&rows, 100).Error; err != nil {
		return 0, wrapInternal(err, 50062, "failed to create notifications")
	}
	for i, n := range rows {
		if mailed[i] {
			s.mailCopy(n)
		}
	}
	return len(rows), nil
}

// mailCopy sends the notification by e-mail when SMTP is configured.
func (s *NotificationService) mailCopy(n models.Notification) {
	if !config.Get().SMTP.Enabled() {
		return
	}
	var u models.User
	if err := s.db.Select("email").First(&u, n.UserID).Error; err != nil || u.Email == "" {
		return
	}
	utils.SendMailAsync(u.Email, n.Title, n.Message)
}

var statusEmojis = map[string]string{
	"pending":     "⏳",
	"in_progress": "🔍",
	"approved":    "✅",
	"completed":   "✅",
	"rejected":    "❌",
}

// StatusEmoji returns the icon shown next to a status name.
func StatusEmoji(status string) string {
	if e, ok := statusEmojis[strings.ToLower(status)]; ok {
		return e
	}
	return "📊"
}

func (s *NotificationService) NotifyReportStatusChange(userID, reportID uint, reportTitle, newStatus string) error {
	_, err := s.Create(NotificationInput{
		UserID:    userID,
		TypeID:    models.NotificationReportStatusChange,
		Title:     StatusEmoji(newStatus) + " Report status updated",
		Message:   fmt.Sprintf("Your report %q is now: %s", reportTitle, newStatus),
		RelatedID: &reportID,
	})
	return err
}

func (s *NotificationService) NotifyNewComment(userID, reportID uint, reportTitle, commenterName string) error {
	_, err := s.Create(NotificationInput{
		UserID:    userID,
		TypeID:    models.NotificationNewComment,
		Title:     "💬 New comment",
		Message:   fmt.Sprintf("%s commented on your report %q", commenterName, reportTitle),
		RelatedID: &reportID,
	})
	return err
}

func (s *NotificationService) NotifyReportTrending(userID, reportID uint, reportTitle string, voteCount int) error {
	_, err := s.Create(NotificationInput{
		UserID:    userID,
		TypeID:    models.NotificationReportTrending,
		Title:     "🚨 Popular report",
		Message:   fmt.Sprintf("Your report %q received %d votes", reportTitle, voteCount),
		RelatedID: &reportID,
	})
	return err
}

// SendSystemAnnouncement fans one announcement out to the given users.
func (s *NotificationService) SendSystemAnnouncement(title, message string, userIDs []uint) (int, error) {
	userIDs = utils.UniqueUint(userIDs)
	if len(userIDs) == 0 {
		return 0, BadRequest(40067, "at least one user id is required")
	}
	items := make([]NotificationInput, 0, len(userIDs))
	for _, id := range userIDs {
		items = append(items, NotificationInput{
			UserID:  id,
			TypeID:  models.NotificationSystemAnnouncement,
			Title:   "📢 " + strings.TrimSpace(title),
			Message: message,
		})
	}
	return s.CreateBulk(items)
}

func (s *NotificationService) SendAdminMessage(userID uint, title, message string, relatedID *uint) (*models.Notification, error) {
	return s.Create(NotificationInput{
		UserID:    userID,
		TypeID:    models.NotificationAdminMessage,
		Title:     "👑 " + strings.TrimSpace(title),
		Message:   message,
		RelatedID: relatedID,
	})
}

// ListForUser pages a user's notifications newest first.
func (s *NotificationService) ListForUser(userID uint, limit, offset int) ([]models.Notification, error) {
	if userID == 0 {
		return nil, BadRequest(40060, "invalid user id")
	}
	if limit < 0 || limit > maxNotificationPage {
		return nil, BadRequest(40068, "limit must be between 0 and 100")
	}
	if offset < 0 {
		return nil, BadRequest(40069, "offset cannot be negative")
	}
	if limit == 0 {
		limit = DefaultNotificationLimit
	}
	out := []models.Notification{}
	err := s.withType().
		Where("notifications.user_id = ?", userID).
		Order("notifications.created_at DESC").Order("notifications.id DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, wrapInternal(err, 50063, "failed to load notifications")
	}
	return out, nil
}

func (s *NotificationService) UnreadForUser(userID uint) ([]models.Notification, error) {
	if userID == 0 {
		return nil, BadRequest(40060, "invalid user id")
	}
	out := []models.Notification{}
	err := s.withType().
		Where("notifications.user_id = ? AND notifications.is_read = ?", userID, false).
		Order("notifications.created_at DESC").Order("notifications.id DESC").
		Find(&out).Error
	if err != nil {
		return nil, wrapInternal(err, 50063, "failed to load notifications")
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	if userID == 0 {
		return 0, BadRequest(40060, "invalid user id")
	}
	var n int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, wrapInternal(err, 50064, "failed to count notifications")
	}
	return n, nil
}

func (s *NotificationService) Summary(userID uint) (*NotificationSummary, error) {
	if userID == 0 {
		return nil, BadRequest(40060, "invalid user id")
	}
	var total int64
	if err := s.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, wrapInternal(err, 50064, "failed to count notifications")
	}
	unread, err := s.UnreadCount(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.ListForUser(userID, 5, 0)
	if err != nil {
		return nil, err
	}
	return &NotificationSummary{Total: total, Unread: unread, Recent: recent}, nil
}

// Get loads a notification with its type.
func (s *NotificationService) Get(id uint) (*models.Notification, error) {
	if id == 0 {
		return nil, BadRequest(40070, "invalid notification id")
	}
	var n models.Notification
	if err := s.withType().Where("notifications.id = ?", id).Take(&n).Error; err != nil {
		return nil, notFoundOr(err, 40460, "notification not found", 50065, "failed to load notification")
	}
	return &n, nil
}

// GetOwned loads a notification and checks it belongs to userID.
func (s *NotificationService) GetOwned(id, userID uint) (*models.Notification, error) {
	n, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, Forbidden(40360, "notification belongs to another user")
	}
	return n, nil
}

// SetRead flips the read flag on one of the user's notifications.
func (s *NotificationService) SetRead(id, userID uint, read bool) error {
	if _, err := s.GetOwned(id, userID); err != nil {
		return err
	}
	err := s.db.Model(&models.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": read, "updated_at": time.Now()}).Error
	if err != nil {
		return wrapInternal(err, 50066, "failed to update notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	if userID == 0 {
		return BadRequest(40060, "invalid user id")
	}
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "updated_at": time.Now()}).Error
	if err != nil {
		return wrapInternal(err, 50066, "failed to update notifications")
	}
	return nil
}

// Types lists active notification types by name.
func (s *NotificationService) Types() ([]models.NotificationType, error) {
	out := []models.NotificationType{}
	if err := s.db.Where("is_active = ?", true).Order("name").Find(&out).Error; err != nil {
		return nil, wrapInternal(err, 50067, "failed to load notification types")
	}
	return out, nil
}

func (s *NotificationService) Type(id uint) (*models.NotificationType, error) {
	if id == 0 {
		return nil, BadRequest(40061, "invalid notification type id")
	}
	var nt models.NotificationType
	if err := s.db.First(&nt, id).Error; err != nil {
		return nil, notFoundOr(err, 40461, "notification type not found", 50067, "failed to load notification type")
	}
	return &nt, nil
}

// Preferences returns the user's rows for active types.
func (s *NotificationService) Preferences(userID uint) ([]models.UserNotificationPreference, error) {
	if userID == 0 {
		return nil, BadRequest(40060, "invalid user id")
	}
	out := []models.UserNotificationPreference{}
	err := s.db.Model(&models.UserNotificationPreference{}).
		Select("user_notification_preferences.*").
		Joins("JOIN notification_types ON notification_types.id = user_notification_preferences.notification_type_id").
		Where("user_notification_preferences.user_id = ? AND notification_types.is_active = ?", userID, true).
		Order("notification_types.name").
		Find(&out).Error
	if err != nil {
		return nil, wrapInternal(err, 50068, "failed to load preferences")
	}
	return out, nil
}

// UserWants reports what the user accepts for a type.
func (s *NotificationService) UserWants(userID, typeID uint) (Wants, error) {
	if userID == 0 {
		return Wants{}, BadRequest(40060, "invalid user id")
	}
	if typeID == 0 {
		return Wants{}, BadRequest(40061, "invalid notification type id")
	}
	var p models.UserNotificationPreference
	err := s.db.Where("user_id = ? AND notification_type_id = ?", userID, typeID).Take(&p).Error
	if err == gorm.ErrRecordNotFound {
		return Wants{Enabled: true, EmailEnabled: true, PushEnabled: true}, nil
	}
	if err != nil {
		return Wants{}, wrapInternal(err, 50068, "failed to load preferences")
	}
	return Wants{Enabled: p.Enabled, EmailEnabled: p.EmailEnabled, PushEnabled: p.PushEnabled}, nil
}

func upsertPreference(tx *gorm.DB, userID uint, in PreferenceInput) error {
	row := models.UserNotificationPreference{
		UserID:             userID,
		NotificationTypeID: in.TypeID,
		Enabled:            in.Enabled,
		EmailEnabled:       in.EmailEnabled,
		PushEnabled:        in.PushEnabled,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "notification_type_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "email_enabled", "push_enabled", "updated_at"}),
	}).Create(&row).Error
}

// SetPreference upserts one preference row.
func (s *NotificationService) SetPreference(userID uint, in PreferenceInput) error {
	if userID == 0 {
		return BadRequest(40060, "invalid user id")
	}
	if in.TypeID == 0 {
		return BadRequest(40061, "invalid notification type id")
	}
	if _, err := s.activeType(in.TypeID); err != nil {
		return err
	}
	if err := upsertPreference(s.db, userID, in); err != nil {
		return wrapInternal(err, 50069, "failed to save preference")
	}
	return nil
}

// SetPreferences validates every type first, then writes all rows in one transaction.
func (s *NotificationService) SetPreferences(userID uint, prefs []PreferenceInput) error {
	if userID == 0 {
		return BadRequest(40060, "invalid user id")
	}
	if len(prefs) == 0 {
		return BadRequest(40071, "at least one preference is required")
	}
	for _, p := range prefs {
		if p.TypeID == 0 {
			return BadRequest(40061, fmt.Sprintf("invalid notification type id: %d", p.TypeID))
		}
		if _, err := s.activeType(p.TypeID); err != nil {
			return BadRequest(40066, fmt.Sprintf("invalid or inactive notification type: %d", p.TypeID))
		}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range prefs {
			if err := upsertPreference(tx, userID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapInternal(err, 50069, "failed to save preferences")
	}
	return nil
}

// CreateDefaultPreferences adds an all-enabled row for every active type the
// user has no row for yet.
func (s *NotificationService) CreateDefaultPreferences(userID uint) error {
	return createDefaultPreferences(s.db, userID)
}

func createDefaultPreferences(db *gorm.DB, userID uint) error {
	if userID == 0 {
		return BadRequest(40060, "invalid user id")
	}
	var types []models.NotificationType
	if err := db.Where("is_active = ?", true).Find(&types).Error; err != nil {
		return wrapInternal(err, 50067, "failed to load notification types")
	}
	if len(types) == 0 {
		return nil
	}
	rows := make([]models.UserNotificationPreference, 0, len(types))
	for _, t := range types {
		rows = append(rows, models.UserNotificationPreference{
			UserID:             userID,
			NotificationTypeID: t.ID,
			Enabled:            true,
			EmailEnabled:       true,
			PushEnabled:        true,
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return wrapInternal(err, 50069, "failed to create default preferences")
	}
	return nil
}

// DeleteOlderThan removes notifications created more than days ago.
func (s *NotificationService) DeleteOlderThan(days int) (int64, error) {
	if days < 1 || days > 365 {
		return 0, BadRequest(40072, "days must be between 1 and 365")
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, wrapInternal(res.Error, 50070, "failed to delete notifications")
	}
	if res.RowsAffected > 0 {
		utils.Logger.Info("old notifications deleted", zap.Int("days", days), zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) DeleteAllForUser(userID uint) (int64, error) {
	if userID == 0 {
		return 0, BadRequest(40060, "invalid user id")
	}
	res := s.db.Where("user_id = ?", userID).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, wrapInternal(res.Error, 50070, "failed to delete notifications")
	}
	return res.RowsAffected, nil
}
