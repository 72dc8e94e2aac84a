package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/middleware"
	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

const (
	resetCodeTTL        = 15 * time.Minute
	resetMailCooldown   = 60 * time.Second
	oauthStateTTL       = 10 * time.Minute
	oauthRequestTimeout = 10 * time.Second
)

// AuthController handles login, token refresh, password reset and OAuth.
type AuthController struct {
	users *services.UserService
}

// NewAuthController creates an AuthController.
func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// loginPayload is the body of every successful login.
func loginPayload(u *models.User) (gin.H, error) {
	admin := services.IsAdmin(u)
	pair, err := utils.GenerateTokenPair(u.ID, u.Email, admin)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"is_admin":      admin,
		"user":          services.Summarize(u),
	}, nil
}

// Login verifies user credentials and issues a token pair.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := a.users.Authenticate(req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	payload, err := loginPayload(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, payload)
}

// Profile returns the current authenticated user's information.
func (a *AuthController) Profile(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	user, err := a.users.Get(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	sum := services.Summarize(user)
	utils.Success(ctx, gin.H{"id": sum.ID, "email": sum.Email, "name": sum.Name, "is_admin": sum.IsAdmin})
}

// Refresh trades a refresh token for a new access token. Every failure looks the same.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = ctx.ShouldBindJSON(&req)
	token := strings.TrimSpace(req.RefreshToken)

	invalid := func() {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid refresh token")
	}
	if token == "" || utils.IsTokenBlacklisted(token) {
		invalid()
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		invalid()
		return
	}
	user, err := a.users.Get(claims.UserID)
	if err != nil {
		invalid()
		return
	}

	minutes := config.Get().Auth.AccessTokenMinutes
	access, err := utils.GenerateToken(user.ID, user.Email, services.IsAdmin(user), utils.TokenTypeAccess, time.Duration(minutes)*time.Minute)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"access_token": access})
}

// Logout revokes the presented access token and, when given, the refresh token.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if claims, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if c, ok := claims.(*utils.Claims); ok {
			utils.BlacklistToken(token, utils.TokenExpiry(c, time.Hour))
		}
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = ctx.ShouldBindJSON(&req)
	if rt := strings.TrimSpace(req.RefreshToken); rt != "" {
		if c, err := utils.ParseToken(rt); err == nil && c.TokenType == utils.TokenTypeRefresh {
			utils.BlacklistToken(rt, utils.TokenExpiry(c, 0))
		}
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Captcha returns a fresh captcha id and base64 image (data URI)
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// ForgotPassword mails a reset code. The answer never reveals whether the
// account exists.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	done := func() {
		utils.Success(ctx, gin.H{"message": "if the account exists, a reset code has been sent"})
	}

	// Within the cooldown the previous code stays valid and nothing is sent.
	if !utils.EmailCooldownTrySet(email, resetMailCooldown) {
		done()
		return
	}
	if _, err := a.users.GetByEmail(email); err != nil {
		done()
		return
	}

	code := utils.GenerateVerificationCode(6)
	utils.SaveResetCode(email, code, resetCodeTTL)
	body := fmt.Sprintf("Your password reset code is: %s\nIt expires in %d minutes.", code, int(resetCodeTTL.Minutes()))
	if err := utils.SendMail(email, "PhishGuard password reset", body); err != nil {
		utils.Logger.Warn("reset mail failed", zap.String("email", email), zap.Error(err))
	}
	done()
}

// ResetPassword consumes a reset code and sets a new password.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Code     string `json:"code" binding:"required,notblank"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if !utils.ValidPasswordLength(req.Password) {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be between 6 and 72 characters")
		return
	}
	if !utils.VerifyAndConsumeResetCode(req.Email, strings.TrimSpace(req.Code)) {
		utils.Error(ctx, http.StatusBadRequest, 40007, "invalid or expired code")
		return
	}
	if err := a.users.SetPassword(req.Email, req.Password); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "password updated"})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, oauthStateTTL)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code, links or creates the user
// by e-mail and logs them in.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), oauthRequestTimeout)
	defer cancel()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := fetchOAuthIdentity(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Logger.Warn("oauth profile fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch provider profile")
		return
	}

	user, err := a.users.LinkOAuth(*identity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	payload, err := loginPayload(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, payload)
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get().OAuth
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.RedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.RedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchOAuthIdentity(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*services.OAuthIdentity, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		return fetchGitHubIdentity(client)
	case "google":
		return fetchGoogleIdentity(client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubIdentity(client *http.Client) (*services.OAuthIdentity, error) {
	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(client, "https://api.github.com/user", &profile); err != nil {
		return nil, err
	}

	email := profile.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	name := profile.Name
	if strings.TrimSpace(name) == "" {
		name = profile.Login
	}
	return &services.OAuthIdentity{
		Provider:   "github",
		ProviderID: fmt.Sprintf("%d", profile.ID),
		Email:      email,
		Name:       name,
	}, nil
}

func fetchGoogleIdentity(client *http.Client) (*services.OAuthIdentity, error) {
	var profile struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &profile); err != nil {
		return nil, err
	}
	if !profile.VerifiedEmail {
		profile.Email = ""
	}
	return &services.OAuthIdentity{
		Provider:   "google",
		ProviderID: profile.ID,
		Email:      profile.Email,
		Name:       profile.Name,
	}, nil
}
