package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/utils"
)

// UserSummary is the public shape of a user.
type UserSummary struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

// UserActivity is a user with their contribution counters.
type UserActivity struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ReportCount  int64  `json:"report_count"`
	CommentCount int64  `json:"comment_count"`
	VoteCount    int64  `json:"vote_count"`
}

// UserStats aggregates platform totals and per-user activity.
type UserStats struct {
	TotalUsers    int64          `json:"total_users"`
	TotalAdmins   int64          `json:"total_admins"`
	TotalReports  int64          `json:"total_reports"`
	TotalComments int64          `json:"total_comments"`
	Users         []UserActivity `json:"users"`
}

// RegisterInput is a new local account.
type RegisterInput struct {
	Email        string
	Name         string
	Password     string
	IsAdmin      bool
	IsSuperAdmin bool
}

// OAuthIdentity is what a provider tells us about a user.
type OAuthIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// UserService manages accounts.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin reports the stored flag or membership in auth.admin_emails.
func IsAdmin(u *models.User) bool {
	if u.IsAdmin || u.IsSuperAdmin {
		return true
	}
	for _, e := range config.Get().Auth.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), u.Email) {
			return true
		}
	}
	return false
}

func Summarize(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: IsAdmin(u)}
}

// Register creates a local account and its default notification preferences.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := utils.SanitizeText(in.Name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, BadRequest(40001, "a valid email is required")
	}
	if name == "" {
		return nil, BadRequest(40002, "name cannot be empty")
	}
	if !utils.ValidPasswordLength(in.Password) {
		return nil, BadRequest(40003, "password must be between 6 and 72 characters")
	}

	var n int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, wrapInternal(err, 50001, "failed to check email")
	}
	if n > 0 {
		return nil, Conflict(40901, "email already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, wrapInternal(err, 50002, "failed to hash password")
	}
	u := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     "local",
		IsAdmin:      in.IsAdmin || in.IsSuperAdmin,
		IsSuperAdmin: in.IsSuperAdmin,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return createDefaultPreferences(tx, u.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict(40901, "email already registered")
		}
		return nil, wrapInternal(err, 50003, "failed to create user")
	}
	return &u, nil
}

// Authenticate checks credentials. Unknown email and wrong password look the same.
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized(40106, "invalid email or password")
		}
		return nil, wrapInternal(err, 50004, "failed to load user")
	}
	if !utils.CheckPassword(u.PasswordHash, password) {
		return nil, Unauthorized(40106, "invalid email or password")
	}
	return &u, nil
}

func (s *UserService) Get(id uint) (*models.User, error) {
	if id == 0 {
		return nil, BadRequest(40004, "invalid user id")
	}
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, 40401, "user not found", 50004, "failed to load user")
	}
	return &u, nil
}

func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFoundOr(err, 40401, "user not found", 50004, "failed to load user")
	}
	return &u, nil
}

// Update changes the name and/or password. Blank values are ignored.
func (s *UserService) Update(id uint, name, password *string) (*models.User, error) {
	u, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if name != nil {
		if n := utils.SanitizeText(*name); n != "" {
			changes["name"] = n
		}
	}
	if password != nil && *password != "" {
		if !utils.ValidPasswordLength(*password) {
			return nil, BadRequest(40003, "password must be between 6 and 72 characters")
		}
		hash, err := utils.HashPassword(*password)
		if err != nil {
			return nil, wrapInternal(err, 50002, "failed to hash password")
		}
		changes["password_hash"] = hash
	}
	if len(changes) == 0 {
		return u, nil
	}
	if err := s.db.Model(u).Updates(changes).Error; err != nil {
		return nil, wrapInternal(err, 50005, "failed to update user")
	}
	return s.Get(id)
}

// SetPassword rehashes the password of the account behind email.
func (s *UserService) SetPassword(email, password string) error {
	u, err := s.GetByEmail(email)
	if err != nil {
		return err
	}
	_, err = s.Update(u.ID, nil, &password)
	return err
}

func (s *UserService) List() ([]UserSummary, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, wrapInternal(err, 50006, "failed to load users")
	}
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, UserSummary{ID: users[i].ID, Email: users[i].Email, Name: users[i].Name})
	}
	return out, nil
}

// HasSuperAdmin reports whether any super admin exists yet.
func (s *UserService) HasSuperAdmin() (bool, error) {
	var n int64
	if err := s.db.Model(&models.User{}).Where("is_super_admin = ?", true).Count(&n).Error; err != nil {
		return false, wrapInternal(err, 50001, "failed to check super admins")
	}
	return n > 0, nil
}

func (s *UserService) activity() *gorm.DB {
	return s.db.Model(&models.User{}).
		Select(`users.id, users.email, users.name,
			(SELECT COUNT(*) FROM reports WHERE reports.user_id = users.id) AS report_count,
			(SELECT COUNT(*) FROM comments WHERE comments.user_id = users.id) AS comment_count,
			(SELECT COUNT(*) FROM report_votes WHERE report_votes.user_id = users.id) AS vote_count`)
}

// Stats returns platform totals plus every user's activity.
func (s *UserService) Stats() (*UserStats, error) {
	st := &UserStats{Users: []UserActivity{}}
	counts := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{s.db.Model(&models.User{}), &st.TotalUsers},
		{s.db.Model(&models.User{}).Where("is_admin = ? OR is_super_admin = ?", true, true), &st.TotalAdmins},
		{s.db.Model(&models.Report{}), &st.TotalReports},
		{s.db.Model(&models.Comment{}), &st.TotalComments},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, wrapInternal(err, 50007, "failed to compute stats")
		}
	}
	if err := s.activity().Order("users.id").Scan(&st.Users).Error; err != nil {
		return nil, wrapInternal(err, 50007, "failed to compute stats")
	}
	return st, nil
}

// TopActive returns the users with most reports plus comments.
func (s *UserService) TopActive(limit int) ([]UserActivity, error) {
	if limit <= 0 {
		limit = 10
	}
	out := []UserActivity{}
	err := s.db.Table("(?) AS activity", s.activity()).
		Order("activity.report_count + activity.comment_count DESC").Order("activity.id").
		Limit(limit).Scan(&out).Error
	if err != nil {
		return nil, wrapInternal(err, 50007, "failed to compute stats")
	}
	return out, nil
}

// LinkOAuth finds the account for a provider identity, links an existing
// account with the same e-mail, or creates a new one.
func (s *UserService) LinkOAuth(id OAuthIdentity) (*models.User, error) {
	var u models.User
	err := s.db.Where("provider = ? AND provider_id = ?", id.Provider, id.ProviderID).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapInternal(err, 50004, "failed to load user")
	}

	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, BadRequest(40005, "provider did not return an email address")
	}
	err = s.db.Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		err = s.db.Model(&u).Updates(map[string]interface{}{"provider": id.Provider, "provider_id": id.ProviderID}).Error
		if err != nil {
			return nil, wrapInternal(err, 50005, "failed to link account")
		}
		return &u, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, wrapInternal(err, 50004, "failed to load user")
	}

	name := utils.SanitizeText(id.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u = models.User{Email: email, Name: name, Provider: id.Provider, ProviderID: id.ProviderID}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return createDefaultPreferences(tx, u.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict(40901, "email already registered")
		}
		return nil, wrapInternal(err, 50003, "failed to create user")
	}
	return &u, nil
}
