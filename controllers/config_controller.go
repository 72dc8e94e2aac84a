package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/utils"
)

// ConfigController serves the configuration a client is allowed to see.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetPublic returns the feature flags the frontend needs before login.
func (c *ConfigController) GetPublic(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"captcha_enabled": cfg.Register.CaptchaEnabled,
		"oauth_providers": cfg.OAuth.Providers(),
		"max_upload_mb":   cfg.Storage.MaxUploadMB,
		"smtp_enabled":    cfg.SMTP.Enabled(),
	})
}
