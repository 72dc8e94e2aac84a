package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// AdminNotificationController lets admins send and manage notifications for any user.
type AdminNotificationController struct {
	notifications *services.NotificationService
	users         *services.UserService
}

func NewAdminNotificationController(notifications *services.NotificationService, users *services.UserService) *AdminNotificationController {
	return &AdminNotificationController{notifications: notifications, users: users}
}

// created answers 201 with the notification, or 200 when the recipient opted out.
func created(ctx *gin.Context, n interface{}, skipped bool) {
	if skipped {
		utils.Success(ctx, gin.H{"skipped": true, "message": "recipient disabled this notification type"})
		return
	}
	utils.Created(ctx, n)
}

func (a *AdminNotificationController) Create(ctx *gin.Context) {
	var req services.NotificationInput
	if !bindJSON(ctx, &req) {
		return
	}
	n, err := a.notifications.Create(req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	created(ctx, n, n == nil)
}

func (a *AdminNotificationController) CreateBulk(ctx *gin.Context) {
	var req struct {
		Notifications []services.NotificationInput `json:"notifications"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	count, err := a.notifications.CreateBulk(req.Notifications)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"created": count})
}

func (a *AdminNotificationController) SystemAnnouncement(ctx *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
		UserIDs []uint `json:"user_ids"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	sent, err := a.notifications.SendSystemAnnouncement(req.Title, req.Message, req.UserIDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"sent_to": sent})
}

func (a *AdminNotificationController) AdminMessage(ctx *gin.Context) {
	var req struct {
		UserID    uint   `json:"user_id" binding:"required"`
		Title     string `json:"title" binding:"required"`
		Message   string `json:"message" binding:"required"`
		RelatedID *uint  `json:"related_id"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	n, err := a.notifications.SendAdminMessage(req.UserID, req.Title, req.Message, req.RelatedID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	created(ctx, n, n == nil)
}

func (a *AdminNotificationController) UserNotifications(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	limit, ok := queryInt(ctx, "limit", services.DefaultNotificationLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(ctx, "offset", 0)
	if !ok {
		return
	}
	list, err := a.notifications.ListForUser(userID, limit, offset)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (a *AdminNotificationController) UserUnread(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	list, err := a.notifications.UnreadForUser(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (a *AdminNotificationController) UserSummary(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	sum, err := a.notifications.Summary(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sum)
}

func (a *AdminNotificationController) UserPreferences(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	prefs, err := a.notifications.Preferences(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, prefs)
}

func (a *AdminNotificationController) DeleteUserAll(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	n, err := a.notifications.DeleteAllForUser(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": n})
}

// Cleanup deletes notifications older than :days (1..365).
func (a *AdminNotificationController) Cleanup(ctx *gin.Context) {
	days, err := strconv.Atoi(ctx.Param("days"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "days must be between 1 and 365")
		return
	}
	n, err := a.notifications.DeleteOlderThan(days)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": n})
}

// TestNotification sends a sample ADMIN_MESSAGE to the given admin.
func (a *AdminNotificationController) TestNotification(ctx *gin.Context) {
	adminID, ok := parseID(ctx, "adminId")
	if !ok {
		return
	}
	admin, err := a.users.Get(adminID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !services.IsAdmin(admin) {
		utils.Error(ctx, http.StatusBadRequest, 40073, "user is not an admin")
		return
	}
	n, err := a.notifications.SendAdminMessage(admin.ID, "Test notification", "This is a test notification from the admin panel.", nil)
	if err != nil {
		respondError(ctx, err)
		return
	}
	created(ctx, n, n == nil)
}
