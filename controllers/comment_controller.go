package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// CommentController handles comments on reports.
type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type createCommentRequest struct {
	ReportID uint   `json:"report_id" binding:"required"`
	Title    string `json:"title"`
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url"`
}

// Create adds a comment to a report as the current user.
func (c *CommentController) Create(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req createCommentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := c.comments.Create(services.CommentInput{
		ReportID: req.ReportID,
		UserID:   userID,
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, view)
}

func (c *CommentController) ByReport(ctx *gin.Context) {
	reportID, ok := parseID(ctx, "reportId")
	if !ok {
		return
	}
	list, err := c.comments.ByReport(reportID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (c *CommentController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.comments.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

type updateCommentRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

func (c *CommentController) Update(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := c.comments.Update(id, userID, isAdmin(ctx), services.UpdateCommentInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

func (c *CommentController) Delete(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.comments.Delete(id, userID, isAdmin(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
