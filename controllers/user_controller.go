package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// UserController handles self-service account endpoints.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type registerRequest struct {
	Email         string `json:"email" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Password      string `json:"password" binding:"required"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// Register creates a new account. Abuse controls apply per client IP.
func (u *UserController) Register(ctx *gin.Context) {
	var req registerRequest
	if !bindJSON(ctx, &req) {
		return
	}

	ip := ctx.ClientIP()
	switch utils.CheckRegistration(ip) {
	case utils.RegistrationBanned:
		utils.Error(ctx, http.StatusTooManyRequests, 42901, "too many failed attempts, try again later")
		return
	case utils.RegistrationCoolingDown:
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "please wait before trying again")
		return
	case utils.RegistrationDailyCap:
		utils.Error(ctx, http.StatusTooManyRequests, 42903, "daily registration limit reached")
		return
	}

	if !utils.RegistrationCaptchaPassed(req.CaptchaID, req.CaptchaAnswer) {
		utils.RegistrationFailed(ip)
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid captcha")
		return
	}

	user, err := u.users.Register(services.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		utils.RegistrationFailed(ip)
		respondError(ctx, err)
		return
	}
	utils.RegistrationSucceeded(ip)

	utils.Created(ctx, gin.H{"id": user.ID, "email": user.Email, "name": user.Name})
}

// Me returns the caller's profile.
func (u *UserController) Me(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	user, err := u.users.Get(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, services.Summarize(user))
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// UpdateMe changes the caller's name and/or password.
func (u *UserController) UpdateMe(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := u.users.Update(userID, req.Name, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, services.Summarize(user))
}
