package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

const defaultPopularLimit = 10

// ReportController serves report submission, search, voting and moderation.
type ReportController struct {
	reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

type createReportRequest struct {
	CategoryID  uint     `json:"category_id" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	URL         string   `json:"url" binding:"required"`
	ImageURL    string   `json:"image_url"`
	TagNames    []string `json:"tag_names"`
}

// Create files a report owned by the current user.
func (r *ReportController) Create(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req createReportRequest
	if !bindJSON(ctx, &req) {
		return
	}
	report, err := r.reports.Create(services.CreateReportInput{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		TagNames:    req.TagNames,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, report)
}

// Search lists reports with optional filters, sort, includes and paging.
func (r *ReportController) Search(ctx *gin.Context) {
	page, ok := queryInt(ctx, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(ctx, "limit", services.DefaultReportLimit)
	if !ok {
		return
	}
	var include []string
	if raw := strings.TrimSpace(ctx.Query("include")); raw != "" {
		include = strings.Split(raw, ",")
	}

	result, err := r.reports.Search(services.ReportQuery{
		Status:     ctx.Query("status"),
		UserID:     queryUint(ctx, "user_id"),
		CategoryID: queryUint(ctx, "category_id"),
		URL:        ctx.Query("url"),
		Sort:       ctx.Query("sort"),
		Include:    include,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

func (r *ReportController) Active(ctx *gin.Context) {
	r.list(ctx, r.reports.Active)
}

func (r *ReportController) WithStatus(ctx *gin.Context) {
	r.list(ctx, r.reports.AllWithStatus)
}

func (r *ReportController) Statuses(ctx *gin.Context) {
	statuses, err := r.reports.Statuses()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, statuses)
}

func (r *ReportController) list(ctx *gin.Context, load func() ([]models.Report, error)) {
	list, err := load()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// Primary returns the most voted report for ?url=.
func (r *ReportController) Primary(ctx *gin.Context) {
	report, err := r.reports.Primary(ctx.Query("url"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

func (r *ReportController) Siblings(ctx *gin.Context) {
	list, err := r.reports.Siblings(ctx.Query("url"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (r *ReportController) Popular(ctx *gin.Context) {
	limit, ok := queryInt(ctx, "limit", defaultPopularLimit)
	if !ok {
		return
	}
	list, err := r.reports.Popular(limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (r *ReportController) UserActive(ctx *gin.Context) {
	r.byUser(ctx, models.ActiveStatusIDs)
}

func (r *ReportController) UserCompleted(ctx *gin.Context) {
	r.byUser(ctx, models.CompletedStatusIDs)
}

func (r *ReportController) byUser(ctx *gin.Context, statusIDs []uint) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	list, err := r.reports.ByUser(userID, statusIDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (r *ReportController) ByCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "categoryId")
	if !ok {
		return
	}
	list, err := r.reports.ByCategory(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (r *ReportController) ByStatus(ctx *gin.Context) {
	id, ok := parseID(ctx, "statusId")
	if !ok {
		return
	}
	list, err := r.reports.ByStatus(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// ByURL returns the latest report for a URL passed as an escaped path segment.
func (r *ReportController) ByURL(ctx *gin.Context) {
	link, err := url.PathUnescape(ctx.Param("url"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40015, "invalid url")
		return
	}
	report, err := r.reports.LatestByURL(link)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

// Get returns one report joined with its status.
func (r *ReportController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	report, err := r.reports.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

func (r *ReportController) Tags(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	tags, err := r.reports.Tags(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, tags)
}

func (r *ReportController) Category(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	name, err := r.reports.CategoryName(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"category_name": name})
}

type updateReportRequest struct {
	CategoryID  *uint     `json:"category_id"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	URL         *string   `json:"url"`
	ImageURL    *string   `json:"image_url"`
	TagNames    *[]string `json:"tag_names"`
}

// Update applies a partial update for the owner or an admin.
func (r *ReportController) Update(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateReportRequest
	if !bindJSON(ctx, &req) {
		return
	}
	report, err := r.reports.Update(id, userID, isAdmin(ctx), services.UpdateReportInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		TagNames:    req.TagNames,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

// Vote casts {"vote_type": "up"|"down"} for the current user.
func (r *ReportController) Vote(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		VoteType string `json:"vote_type" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	var value int
	switch strings.ToLower(strings.TrimSpace(req.VoteType)) {
	case "up":
		value = 1
	case "down":
		value = -1
	default:
		utils.Error(ctx, http.StatusBadRequest, 40022, "vote_type must be up or down")
		return
	}
	report, err := r.reports.Vote(id, userID, value)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

// AddTagsFromText attaches tags by name without removing existing ones.
func (r *ReportController) AddTagsFromText(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		TagNames []string `json:"tag_names"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	tags, err := r.reports.AddTagsFromText(id, userID, isAdmin(ctx), req.TagNames)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, tags)
}

// Moderate changes a report's status as the current admin.
func (r *ReportController) Moderate(ctx *gin.Context) {
	moderatorID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		StatusID       uint   `json:"status_id" binding:"required"`
		ModerationNote string `json:"moderation_note"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	report, err := r.reports.Moderate(id, req.StatusID, moderatorID, req.ModerationNote)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

func (r *ReportController) Delete(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := r.reports.Delete(id, userID, isAdmin(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "report deleted"})
}
