package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/phishguard/middleware"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// respondError writes a service error as-is and anything else as a generic 500.
func respondError(ctx *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		utils.Error(ctx, se.Status, se.Code, se.Message)
		return
	}
	utils.Logger.Error("unhandled error", zap.String("path", ctx.FullPath()), zap.Error(err))
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// mustUserID answers 401 when the request carries no user.
func mustUserID(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

func isAdmin(ctx *gin.Context) bool {
	return ctx.GetBool(middleware.ContextIsAdminKey)
}

// parseID reads a positive integer path parameter, answering 400 otherwise.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 32)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40009, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// queryInt reads an integer query parameter. Missing means def; garbage is an error.
func queryInt(ctx *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40008, "invalid "+name)
		return 0, false
	}
	return n, true
}

func queryUint(ctx *gin.Context, name string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Query(name)), 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "invalid request payload")
		return false
	}
	return true
}
