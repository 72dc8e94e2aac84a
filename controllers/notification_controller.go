package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// NotificationController serves notification types and the internal
// endpoints other services use to raise notifications.
type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (n *NotificationController) Types(ctx *gin.Context) {
	types, err := n.notifications.Types()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, types)
}

func (n *NotificationController) Type(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	t, err := n.notifications.Type(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, t)
}

func (n *NotificationController) TypeConstants(ctx *gin.Context) {
	utils.Success(ctx, models.NotificationTypeConstants)
}

type internalReportRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	ReportID    uint   `json:"report_id" binding:"required"`
	ReportTitle string `json:"report_title"`
}

func (n *NotificationController) InternalStatusChange(ctx *gin.Context) {
	var req struct {
		internalReportRequest
		NewStatus string `json:"new_status" binding:"required,notblank"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.NotifyReportStatusChange(req.UserID, req.ReportID, req.ReportTitle, req.NewStatus); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "status change notification sent"})
}

func (n *NotificationController) InternalNewComment(ctx *gin.Context) {
	var req struct {
		internalReportRequest
		CommenterName string `json:"commenter_name" binding:"required,notblank"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.NotifyNewComment(req.UserID, req.ReportID, req.ReportTitle, req.CommenterName); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "new comment notification sent"})
}

func (n *NotificationController) InternalTrending(ctx *gin.Context) {
	var req struct {
		internalReportRequest
		VoteCount int `json:"vote_count"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.NotifyReportTrending(req.UserID, req.ReportID, req.ReportTitle, req.VoteCount); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "trending notification sent"})
}
