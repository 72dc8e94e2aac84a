package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// AdminController exposes user administration and report history.
type AdminController struct {
	users   *services.UserService
	reports *services.ReportService
}

func NewAdminController(users *services.UserService, reports *services.ReportService) *AdminController {
	return &AdminController{users: users, reports: reports}
}

type adminRegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an admin account.
func (a *AdminController) Register(ctx *gin.Context) {
	var req adminRegisterRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.users.Register(services.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		IsAdmin:  true,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, services.Summarize(user))
}

// RegisterSuper creates a super admin. Only a super admin may do so once the
// first one exists.
func (a *AdminController) RegisterSuper(ctx *gin.Context) {
	var req adminRegisterRequest
	if !bindJSON(ctx, &req) {
		return
	}

	exists, err := a.users.HasSuperAdmin()
	if err != nil {
		respondError(ctx, err)
		return
	}
	if exists {
		callerID, ok := mustUserID(ctx)
		if !ok {
			return
		}
		caller, err := a.users.Get(callerID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		if !caller.IsSuperAdmin {
			utils.Error(ctx, http.StatusForbidden, 40303, "super admin required")
			return
		}
	}

	user, err := a.users.Register(services.RegisterInput{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		IsSuperAdmin: true,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, services.Summarize(user))
}

func (a *AdminController) UserStats(ctx *gin.Context) {
	stats, err := a.users.Stats()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

func (a *AdminController) TopActive(ctx *gin.Context) {
	users, err := a.users.TopActive(10)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

func (a *AdminController) ListUsers(ctx *gin.Context) {
	users, err := a.users.List()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

func (a *AdminController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, err := a.users.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": user.ID, "email": user.Email, "name": user.Name})
}

// UpdateUser sets another user's name and password.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.users.Update(id, req.Name, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": user.ID, "email": user.Email, "name": user.Name})
}

// ReportHistory lists a report's status changes, oldest first.
func (a *AdminController) ReportHistory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	history, err := a.reports.History(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, history)
}
