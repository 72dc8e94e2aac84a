package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

// StatsController provides platform-wide counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the platform.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var reportCount int64
	var activeCount int64
	var completedCount int64
	var commentCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Report{}).Count(&reportCount).Error; err != nil {
		reportCount = 0
	}

	if err := s.db.Model(&models.Report{}).Where("status_id IN ?", models.ActiveStatusIDs).Count(&activeCount).Error; err != nil {
		activeCount = 0
	}

	if err := s.db.Model(&models.Report{}).Where("status_id IN ?", models.CompletedStatusIDs).Count(&completedCount).Error; err != nil {
		completedCount = 0
	}

	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":             userCount,
		"report_count":           reportCount,
		"active_report_count":    activeCount,
		"completed_report_count": completedCount,
		"comment_count":          commentCount,
	})
}
