package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

const (
	reportListCachePrefix = "cache:reports:"
	reportListCacheTTL    = 5 * time.Minute

	DefaultReportLimit = 20
	MaxReportLimit     = 100
)

// ReportService implements report submission, search, voting and moderation.
type ReportService struct {
	db            *gorm.DB
	comments      *CommentService
	notifications *NotificationService
}

func NewReportService(db *gorm.DB, comments *CommentService, notifications *NotificationService) *ReportService {
	return &ReportService{db: db, comments: comments, notifications: notifications}
}

// CreateReportInput is a new report. UserID always comes from the token.
type CreateReportInput struct {
	UserID      uint
	CategoryID  uint
	Title       string
	Description string
	URL         string
	ImageURL    string
	TagNames    []string
}

// UpdateReportInput is a partial update. Nil fields keep the stored value.
type UpdateReportInput struct {
	CategoryID  *uint
	Title       *string
	Description *string
	URL         *string
	ImageURL    *string
	TagNames    *[]string
}

// ReportQuery filters the report search.
type ReportQuery struct {
	Status     string
	UserID     uint
	CategoryID uint
	URL        string
	Sort       string
	Include    []string
	Page       int
	Limit      int
}

// ReportPage is one page of search results.
type ReportPage struct {
	Items []models.Report `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int64           `json:"total"`
}

// withStatus selects reports joined with their status name and description.
func (s *ReportService) withStatus() *gorm.DB {
	return s.db.Model(&models.Report{}).
		Select("reports.*, report_statuses.name AS status_name, report_statuses.description AS status_description").
		Joins("LEFT JOIN report_statuses ON report_statuses.id = reports.status_id")
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("reports.created_at DESC").Order("reports.id DESC")
}

func mostVotedFirst(q *gorm.DB) *gorm.DB {
	return q.Order("reports.vote_count DESC").Order("reports.created_at DESC").Order("reports.id DESC")
}

func invalidateReportLists() {
	utils.InvalidateByPrefix(reportListCachePrefix)
}

func (s *ReportService) find(q *gorm.DB) ([]models.Report, error) {
	out := []models.Report{}
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapInternal(err, 50010, "failed to load reports")
	}
	return out, nil
}

// Get returns a report with status, category and tags.
func (s *ReportService) Get(id uint) (*models.Report, error) {
	if id == 0 {
		return nil, BadRequest(40010, "invalid report id")
	}
	var r models.Report
	err := s.withStatus().Preload("Category").Preload("Tags").
		Where("reports.id = ?", id).Take(&r).Error
	if err != nil {
		return nil, notFoundOr(err, 40410, "report not found", 50011, "failed to load report")
	}
	return &r, nil
}

func (s *ReportService) load(tx *gorm.DB, id uint) (*models.Report, error) {
	if id == 0 {
		return nil, BadRequest(40010, "invalid report id")
	}
	var r models.Report
	if err := tx.First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, 40410, "report not found", 50011, "failed to load report")
	}
	return &r, nil
}

func canModify(r *models.Report, actorID uint, isAdmin bool) error {
	if r.UserID != actorID && !isAdmin {
		return Forbidden(40310, "you can only modify your own reports")
	}
	return nil
}

func (s *ReportService) checkCategory(id uint) error {
	if id == 0 {
		return BadRequest(40011, "category_id is required")
	}
	var n int64
	if err := s.db.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrapInternal(err, 50012, "failed to load category")
	}
	if n == 0 {
		return BadRequest(40012, "category does not exist")
	}
	return nil
}

// Create stores a report and attaches its tags by name.
func (s *ReportService) Create(in CreateReportInput) (*models.Report, error) {
	if in.UserID == 0 {
		return nil, Unauthorized(40110, "unauthorized")
	}
	title := utils.SanitizeText(in.Title)
	link := strings.TrimSpace(in.URL)
	if title == "" {
		return nil, BadRequest(40013, "title cannot be empty")
	}
	if link == "" {
		return nil, BadRequest(40014, "url cannot be empty")
	}
	if err := s.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}

	r := models.Report{
		UserID:      in.UserID,
		CategoryID:  in.CategoryID,
		Title:       title,
		Description: utils.SanitizeText(in.Description),
		URL:         link,
		StatusID:    models.StatusPending,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Category", "User").Create(&r).Error; err != nil {
			return err
		}
		if len(in.TagNames) == 0 {
			return nil
		}
		tags, err := findOrCreateTags(tx, in.TagNames)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Model(&r).Association("Tags").Append(tags)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, 50013, "failed to create report")
	}
	invalidateReportLists()
	return s.Get(r.ID)
}

// Update applies a partial update for the owner or an admin.
func (s *ReportService) Update(id, actorID uint, isAdmin bool, in UpdateReportInput) (*models.Report, error) {
	r, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(r, actorID, isAdmin); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if in.Title != nil {
		if t := utils.SanitizeText(*in.Title); t != "" {
			changes["title"] = t
		}
	}
	if in.Description != nil {
		if d := utils.SanitizeText(*in.Description); d != "" {
			changes["description"] = d
		}
	}
	if in.URL != nil {
		if u := strings.TrimSpace(*in.URL); u != "" {
			changes["url"] = u
		}
	}
	if in.CategoryID != nil && *in.CategoryID != 0 && *in.CategoryID != r.CategoryID {
		if err := s.checkCategory(*in.CategoryID); err != nil {
			return nil, err
		}
		changes["category_id"] = *in.CategoryID
	}
	if in.ImageURL != nil {
		changes["image_url"] = strings.TrimSpace(*in.ImageURL)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(changes) > 0 {
			changes["updated_at"] = time.Now()
			if err := tx.Model(&models.Report{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return err
			}
		}
		if in.TagNames != nil {
			tags, err := findOrCreateTags(tx, *in.TagNames)
			if err != nil {
				return err
			}
			return tx.Model(r).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, 50014, "failed to update report")
	}
	invalidateReportLists()
	return s.Get(id)
}

// Delete removes a report with its votes, tag links, comments and history.
func (s *ReportService) Delete(id, actorID uint, isAdmin bool) error {
	r, err := s.load(s.db, id)
	if err != nil {
		return err
	}
	if err := canModify(r, actorID, isAdmin); err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportVote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(r).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportStatusHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Report{}, id).Error
	})
	if err != nil {
		return wrapInternal(err, 50015, "failed to delete report")
	}
	invalidateReportLists()
	return nil
}

// Search runs the filtered, paged report listing. Results are cached until
// the next report write.
func (s *ReportService) Search(q ReportQuery) (*ReportPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultReportLimit
	}
	if q.Limit > MaxReportLimit {
		q.Limit = MaxReportLimit
	}
	q.URL = strings.TrimSpace(q.URL)
	status := strings.ToLower(strings.TrimSpace(q.Status))

	if status == "primary" {
		if q.URL == "" {
			return nil, BadRequest(40015, "url is required")
		}
		r, err := s.Primary(q.URL)
		if err != nil {
			return nil, err
		}
		return &ReportPage{Items: []models.Report{*r}, Page: 1, Limit: 1, Total: 1}, nil
	}

	var statusIDs []uint
	switch status {
	case "":
	case "active":
		statusIDs = models.ActiveStatusIDs
	case "completed":
		statusIDs = models.CompletedStatusIDs
	default:
		n, err := strconv.ParseUint(status, 10, 32)
		if err != nil || n == 0 {
			return nil, BadRequest(40016, "invalid status filter")
		}
		statusIDs = []uint{uint(n)}
	}

	key := reportListCachePrefix + "list:" + searchCacheKey(q, statusIDs)
	var cached ReportPage
	if utils.CacheGetJSON(key, &cached) {
		return &cached, nil
	}

	filter := func(db *gorm.DB) *gorm.DB {
		if len(statusIDs) > 0 {
			db = db.Where("reports.status_id IN ?", statusIDs)
		}
		if q.UserID > 0 {
			db = db.Where("reports.user_id = ?", q.UserID)
		}
		if q.CategoryID > 0 {
			db = db.Where("reports.category_id = ?", q.CategoryID)
		}
		if q.URL != "" {
			db = db.Where("reports.url = ?", q.URL)
		}
		return db
	}

	var total int64
	if err := s.db.Model(&models.Report{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, wrapInternal(err, 50016, "failed to count reports")
	}

	list := s.withStatus().Scopes(filter)
	if strings.EqualFold(q.Sort, "popular") {
		list = mostVotedFirst(list)
	} else {
		list = newestFirst(list)
	}
	for _, inc := range q.Include {
		switch strings.ToLower(strings.TrimSpace(inc)) {
		case "category":
			list = list.Preload("Category")
		case "user":
			list = list.Preload("User")
		case "tags":
			list = list.Preload("Tags")
		}
	}
	items, err := s.find(list.Offset((q.Page - 1) * q.Limit).Limit(q.Limit))
	if err != nil {
		return nil, err
	}

	page := &ReportPage{Items: items, Page: q.Page, Limit: q.Limit, Total: total}
	utils.CacheSetJSON(key, page, reportListCacheTTL)
	return page, nil
}

func searchCacheKey(q ReportQuery, statusIDs []uint) string {
	v := url.Values{}
	for _, id := range statusIDs {
		v.Add("s", strconv.FormatUint(uint64(id), 10))
	}
	v.Set("u", strconv.FormatUint(uint64(q.UserID), 10))
	v.Set("c", strconv.FormatUint(uint64(q.CategoryID), 10))
	v.Set("url", q.URL)
	v.Set("sort", strings.ToLower(q.Sort))
	for _, inc := range q.Include {
		v.Add("i", strings.ToLower(strings.TrimSpace(inc)))
	}
	v.Set("p", strconv.Itoa(q.Page))
	v.Set("l", strconv.Itoa(q.Limit))
	return v.Encode()
}

// Primary returns the most voted report for a URL, newest on ties.
func (s *ReportService) Primary(link string) (*models.Report, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, BadRequest(40015, "url is required")
	}
	var r models.Report
	err := mostVotedFirst(s.withStatus()).Where("reports.url = ?", link).Take(&r).Error
	if err != nil {
		return nil, notFoundOr(err, 40411, "no reports for that url", 50010, "failed to load reports")
	}
	return &r, nil
}

// Siblings lists every report for a URL, most voted first.
func (s *ReportService) Siblings(link string) ([]models.Report, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, BadRequest(40015, "url is required")
	}
	return s.find(mostVotedFirst(s.withStatus()).Where("reports.url = ?", link))
}

// LatestByURL returns the newest report filed for a URL.
func (s *ReportService) LatestByURL(link string) (*models.Report, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, BadRequest(40015, "url is required")
	}
	var r models.Report
	err := newestFirst(s.withStatus()).Where("reports.url = ?", link).Take(&r).Error
	if err != nil {
		return nil, notFoundOr(err, 40410, "report not found", 50010, "failed to load reports")
	}
	return &r, nil
}

func (s *ReportService) AllWithStatus() ([]models.Report, error) {
	return s.find(newestFirst(s.withStatus()))
}

func (s *ReportService) Active() ([]models.Report, error) {
	return s.find(newestFirst(s.withStatus()).Where("reports.status_id IN ?", models.ActiveStatusIDs))
}

// Popular returns the top voted reports; limit must be 1..100.
func (s *ReportService) Popular(limit int) ([]models.Report, error) {
	if limit <= 0 || limit > MaxReportLimit {
		return nil, BadRequest(40017, "limit must be between 1 and 100")
	}
	return s.find(mostVotedFirst(s.withStatus()).Limit(limit))
}

func (s *ReportService) ByUser(userID uint, statusIDs []uint) ([]models.Report, error) {
	if userID == 0 {
		return nil, BadRequest(40018, "invalid user id")
	}
	return s.find(newestFirst(s.withStatus()).
		Where("reports.user_id = ? AND reports.status_id IN ?", userID, statusIDs))
}

func (s *ReportService) ByCategory(categoryID uint) ([]models.Report, error) {
	if categoryID == 0 {
		return nil, BadRequest(40019, "invalid category id")
	}
	return s.find(newestFirst(s.withStatus()).Where("reports.category_id = ?", categoryID))
}

func (s *ReportService) ByStatus(statusID uint) ([]models.Report, error) {
	if statusID == 0 {
		return nil, BadRequest(40020, "invalid status id")
	}
	return s.find(newestFirst(s.withStatus()).Where("reports.status_id = ?", statusID))
}

func (s *ReportService) Statuses() ([]models.ReportStatus, error) {
	out := []models.ReportStatus{}
	if err := s.db.Order("id").Find(&out).Error; err != nil {
		return nil, wrapInternal(err, 50017, "failed to load statuses")
	}
	return out, nil
}

// Tags lists the tags of a report.
func (s *ReportService) Tags(id uint) ([]models.Tag, error) {
	r, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	tags := []models.Tag{}
	if err := s.db.Model(r).Order("tags.name").Association("Tags").Find(&tags); err != nil {
		return nil, wrapInternal(err, 50018, "failed to load tags")
	}
	return tags, nil
}

// CategoryName returns the category name of a report.
func (s *ReportService) CategoryName(id uint) (string, error) {
	if id == 0 {
		return "", BadRequest(40010, "invalid report id")
	}
	var name string
	err := s.db.Model(&models.Report{}).
		Select("categories.name").
		Joins("JOIN categories ON categories.id = reports.category_id").
		Where("reports.id = ?", id).
		Limit(1).Scan(&name).Error
	if err != nil {
		return "", wrapInternal(err, 50012, "failed to load category")
	}
	if name == "" {
		return "", NotFound(40412, fmt.Sprintf("category for report %d not found", id))
	}
	return name, nil
}

// AddTagsFromText find-or-creates tags and attaches them without dropping
// existing ones.
func (s *ReportService) AddTagsFromText(id, actorID uint, isAdmin bool, names []string) ([]models.Tag, error) {
	r, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(r, actorID, isAdmin); err != nil {
		return nil, err
	}
	if len(utils.UniqueFold(names)) == 0 {
		return nil, BadRequest(40021, "tag_names cannot be empty")
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := findOrCreateTags(tx, names)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Model(r).Association("Tags").Append(tags)
	})
	if err != nil {
		return nil, wrapInternal(err, 50019, "failed to attach tags")
	}
	invalidateReportLists()
	return s.Tags(id)
}

// Vote records an up (+1) or down (-1) vote. Repeating a vote is a conflict;
// switching direction moves the count by two.
func (s *ReportService) Vote(id, userID uint, value int) (*models.Report, error) {
	if value != 1 && value != -1 {
		return nil, BadRequest(40022, "vote_type must be up or down")
	}
	if userID == 0 {
		return nil, Unauthorized(40110, "unauthorized")
	}
	r, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var vote models.ReportVote
		delta := value
		err := tx.Where("report_id = ? AND user_id = ?", id, userID).Take(&vote).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote = models.ReportVote{ReportID: id, UserID: userID, Value: value}
			if err := tx.Create(&vote).Error; err != nil {
				// a concurrent first vote by the same user won the unique index
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return Conflict(40911, "vote already being recorded, retry")
				}
				return err
			}
		case err != nil:
			return err
		case vote.Value == value:
			return Conflict(40910, "you already voted this way")
		default:
			delta = 2 * value
			if err := tx.Model(&vote).Update("value", value).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Report{}).Where("id = ?", id).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta)).Error
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, wrapInternal(err, 50020, "failed to record vote")
	}
	invalidateReportLists()

	updated, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	threshold := config.Get().Notifications.TrendingThreshold
	if value > 0 && threshold > 0 && updated.VoteCount > 0 && updated.VoteCount%threshold == 0 && s.notifications != nil {
		if err := s.notifications.NotifyReportTrending(r.UserID, r.ID, reportLabel(r), updated.VoteCount); err != nil {
			logWarn("trending notification failed", err, zap.Uint("report_id", r.ID))
		}
	}
	return updated, nil
}

func reportLabel(r *models.Report) string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

// History returns the status changes of a report, oldest first.
func (s *ReportService) History(id uint) ([]models.ReportStatusHistory, error) {
	if _, err := s.load(s.db, id); err != nil {
		return nil, err
	}
	out := []models.ReportStatusHistory{}
	err := s.db.Where("report_id = ?", id).Order("created_at ASC").Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, wrapInternal(err, 50021, "failed to load history")
	}
	return out, nil
}

// Moderate changes the status of a report. The status update and its history
// row commit together; the completion comment and owner notification are
// best effort.
func (s *ReportService) Moderate(id, statusID, moderatorID uint, note string) (*models.Report, error) {
	if id == 0 {
		return nil, BadRequest(40010, "invalid report id")
	}
	if statusID == 0 {
		return nil, BadRequest(40020, "invalid status id")
	}
	current, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}

	var next models.ReportStatus
	if err := s.db.First(&next, statusID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, BadRequest(40023, "invalid status")
		}
		return nil, wrapInternal(err, 50017, "failed to load statuses")
	}
	if current.StatusID == statusID {
		return nil, BadRequest(40024, "report already has that status")
	}
	var previous models.ReportStatus
	_ = s.db.First(&previous, current.StatusID).Error

	note = strings.TrimSpace(note)
	historyNote := note
	if historyNote == "" {
		historyNote = fmt.Sprintf("Status changed from %s to %s", previous.Name, next.Name)
	}
	now := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Report{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status_id":       statusID,
			"moderator_id":    moderatorID,
			"moderation_note": note,
			"moderated_at":    now,
			"updated_at":      now,
		})
		if res.Error != nil {
			return res.Error
		}
		return tx.Create(&models.ReportStatusHistory{
			ReportID:         id,
			PreviousStatusID: current.StatusID,
			NewStatusID:      statusID,
			Note:             historyNote,
			Reason:           "Status updated by moderator",
			ChangedBy:        moderatorID,
		}).Error
	})
	if err != nil {
		return nil, wrapInternal(err, 50022, "failed to update report status")
	}
	invalidateReportLists()
	utils.Logger.Info("report moderated",
		zap.Uint("report_id", id),
		zap.Uint("from", current.StatusID),
		zap.Uint("to", statusID),
		zap.Uint("moderator_id", moderatorID))

	if strings.EqualFold(next.Name, "completed") && s.comments != nil {
		if _, err := s.comments.Create(CommentInput{
			ReportID: id,
			UserID:   moderatorID,
			Title:    "✅ Report Completed",
			Content:  completionComment(note),
		}); err != nil {
			logWarn("completion comment failed", err, zap.Uint("report_id", id))
		}
	}
	if s.notifications != nil {
		if err := s.notifications.NotifyReportStatusChange(current.UserID, id, reportLabel(current), next.Name); err != nil {
			logWarn("status change notification failed", err, zap.Uint("report_id", id))
		}
	}
	return s.Get(id)
}

func completionComment(note string) string {
	var b strings.Builder
	b.WriteString("✅ **Report Completed**\n\n")
	b.WriteString("This report has been marked as **completed** by our moderation team. ")
	b.WriteString("The necessary actions have been taken to address this threat.\n\n")
	if note != "" {
		b.WriteString("**Moderator note:** " + note + "\n\n")
	}
	b.WriteString("Thanks for helping keep the internet safer! 🛡️")
	return b.String()
}
