package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// UserNotificationController is the caller's own inbox and preferences.
type UserNotificationController struct {
	notifications *services.NotificationService
}

func NewUserNotificationController(notifications *services.NotificationService) *UserNotificationController {
	return &UserNotificationController{notifications: notifications}
}

func (u *UserNotificationController) List(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
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
	list, err := u.notifications.ListForUser(userID, limit, offset)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (u *UserNotificationController) Unread(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	list, err := u.notifications.UnreadForUser(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (u *UserNotificationController) UnreadCount(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	n, err := u.notifications.UnreadCount(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"count": n})
}

func (u *UserNotificationController) HasUnread(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	n, err := u.notifications.UnreadCount(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"has_unread": n > 0})
}

func (u *UserNotificationController) Summary(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	sum, err := u.notifications.Summary(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sum)
}

func (u *UserNotificationController) Get(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	n, err := u.notifications.GetOwned(id, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, n)
}

func (u *UserNotificationController) MarkRead(ctx *gin.Context) {
	u.setRead(ctx, true)
}

func (u *UserNotificationController) MarkUnread(ctx *gin.Context) {
	u.setRead(ctx, false)
}

func (u *UserNotificationController) setRead(ctx *gin.Context, read bool) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := u.notifications.SetRead(id, userID, read); err != nil {
		respondError(ctx, err)
		return
	}
	utils.NoContent(ctx)
}

func (u *UserNotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	if err := u.notifications.MarkAllRead(userID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.NoContent(ctx)
}

func (u *UserNotificationController) Preferences(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	prefs, err := u.notifications.Preferences(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, prefs)
}

func (u *UserNotificationController) SetPreference(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req services.PreferenceInput
	if !bindJSON(ctx, &req) {
		return
	}
	if err := u.notifications.SetPreference(userID, req); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "preference updated"})
}

// SetPreferences writes several preferences atomically.
func (u *UserNotificationController) SetPreferences(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Preferences []services.PreferenceInput `json:"preferences"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if err := u.notifications.SetPreferences(userID, req.Preferences); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "preferences updated"})
}

func (u *UserNotificationController) CreateDefaults(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	if err := u.notifications.CreateDefaultPreferences(userID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"message": "default preferences created"})
}

func (u *UserNotificationController) Check(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	typeID, ok := parseID(ctx, "typeId")
	if !ok {
		return
	}
	wants, err := u.notifications.UserWants(userID, typeID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, wants)
}

func (u *UserNotificationController) DeleteAll(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	n, err := u.notifications.DeleteAllForUser(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": n})
}
