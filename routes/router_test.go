package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/storage"
	"github.com/cppla/phishguard/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	c := config.Defaults()
	c.App.GinMode = "test"
	c.App.GinLogPath = ""
	c.App.RateLimitPerMinute = 100000
	c.App.InternalAPIKey = "internal-key"
	c.Auth.JWTSecret = "router-test-secret-0123"
	c.Auth.AdminEmails = []string{"admin@example.com"}
	c.Redis.Host = ""
	c.Log.Path = ""
	c.Storage.LocalDir = filepath.Join(dir, "uploads")
	config.Use(c)

	db, err := config.OpenDatabase(config.DatabaseSection{Driver: "sqlite", DSN: filepath.Join(dir, "test.db")}, "silent")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := config.Seed(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	utils.InvalidateByPrefix("cache:")

	store, err := storage.New(c.Storage)
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{t: t, router: SetupRouter(db, store), dir: dir}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) (int, envelope) {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	if w.Code != http.StatusNoContent && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL, w.Body.String(), err)
		}
	}
	return w.Code, env
}

// expect performs a request and fails unless the status matches.
func (s *testServer) expect(status int, method, path, token string, body interface{}, out interface{}) envelope {
	s.t.Helper()
	code, env := s.do(method, path, token, body)
	if code != status {
		s.t.Fatalf("%s %s = %d (%d %s), want %d", method, path, code, env.Code, env.Message, status)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: decode data %s: %v", method, path, env.Data, err)
		}
	}
	return env
}

func (s *testServer) signup(email, name string) (uint, string) {
	s.t.Helper()
	var user struct {
		ID uint `json:"id"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/users", "",
		gin.H{"email": email, "name": name, "password": "secret123"}, &user)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": email, "password": "secret123"}, &login)
	return user.ID, login.AccessToken
}

func TestReportFlow(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.signup("admin@example.com", "Admin")
	_, ann := s.signup("ann@example.com", "Ann")
	_, bob := s.signup("bob@example.com", "Bob")

	code, env := s.do(http.MethodPost, "/api/v1/users", "", gin.H{"email": "ann@example.com", "name": "Ann", "password": "secret123"})
	if code != http.StatusConflict || env.Code != 40901 {
		t.Fatalf("duplicate signup = %d %d", code, env.Code)
	}
	code, env = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "nope-nope"})
	if code != http.StatusUnauthorized || env.Code != 40106 {
		t.Fatalf("bad login = %d %d", code, env.Code)
	}

	var profile struct {
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/auth/profile", admin, nil, &profile)
	if !profile.IsAdmin {
		t.Fatal("configured admin email not reported as admin")
	}

	// categories are admin-only
	code, env = s.do(http.MethodPost, "/api/v1/categories", ann, gin.H{"name": "Phishing"})
	if code != http.StatusForbidden || env.Code != 40301 {
		t.Fatalf("category by non-admin = %d %d", code, env.Code)
	}
	var category struct {
		ID uint `json:"id"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/categories", admin,
		gin.H{"name": "Phishing", "description": "credential theft"}, &category)
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/categories/name/"+url.PathEscape("Phishing"), "", nil, nil)

	code, _ = s.do(http.MethodPost, "/api/v1/reports", "", gin.H{"title": "x"})
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous report = %d", code)
	}
	link := "http://bank.example/login?x=1"
	var report struct {
		ID         uint   `json:"id"`
		StatusName string `json:"status_name"`
		VoteCount  int    `json:"vote_count"`
		Tags       []struct {
			Name string `json:"name"`
		} `json:"tags"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/reports", ann, gin.H{
		"category_id": category.ID,
		"title":       "Fake bank login",
		"description": "Sends an SMS asking for card details",
		"url":         link,
		"tag_names":   []string{"bank", "sms"},
	}, &report)
	if report.StatusName != "pending" || len(report.Tags) != 2 {
		t.Fatalf("created report = %+v", report)
	}
	reportPath := fmt.Sprintf("/api/v1/reports/%d", report.ID)

	var page struct {
		Total int64 `json:"total"`
		Items []struct {
			ID uint `json:"id"`
		} `json:"items"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/reports?status=active&include=tags,category", "", nil, &page)
	if page.Total != 1 || page.Items[0].ID != report.ID {
		t.Fatalf("search = %+v", page)
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/reports/url/"+url.PathEscape(link), "", nil, &report)
	code, env = s.do(http.MethodGet, "/api/v1/reports?page=abc", "", nil)
	if code != http.StatusBadRequest || env.Code != 40008 {
		t.Fatalf("bad page = %d %d", code, env.Code)
	}

	s.expect(http.StatusOK, http.MethodPut, reportPath+"/vote", bob, gin.H{"vote_type": "up"}, &report)
	if report.VoteCount != 1 {
		t.Fatalf("vote count = %d", report.VoteCount)
	}
	code, env = s.do(http.MethodPut, reportPath+"/vote", bob, gin.H{"vote_type": "up"})
	if code != http.StatusConflict || env.Code != 40910 {
		t.Fatalf("repeat vote = %d %d", code, env.Code)
	}
	code, env = s.do(http.MethodPut, reportPath+"/vote", bob, gin.H{"vote_type": "sideways"})
	if code != http.StatusBadRequest || env.Code != 40022 {
		t.Fatalf("bad vote = %d %d", code, env.Code)
	}

	var comment struct {
		ID          uint   `json:"id"`
		ContentHTML string `json:"content_html"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/comments", bob,
		gin.H{"report_id": report.ID, "content": "I got this **too**"}, &comment)
	if !strings.Contains(comment.ContentHTML, "<strong>too</strong>") {
		t.Fatalf("comment html = %q", comment.ContentHTML)
	}

	var count struct {
		Count int64 `json:"count"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/notifications/unread/count", ann, nil, &count)
	if count.Count != 1 {
		t.Fatalf("unread after comment = %d", count.Count)
	}

	code, _ = s.do(http.MethodPut, reportPath+"/status", ann, gin.H{"status_id": 3})
	if code != http.StatusForbidden {
		t.Fatalf("moderation by owner = %d", code)
	}
	s.expect(http.StatusOK, http.MethodPut, reportPath+"/status", admin,
		gin.H{"status_id": 3, "moderation_note": "domain suspended"}, &report)
	if report.StatusName != "completed" {
		t.Fatalf("status after moderation = %q", report.StatusName)
	}

	var history []struct {
		NewStatusID uint   `json:"new_status_id"`
		Note        string `json:"note"`
	}
	s.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/v1/admin/reports/%d/history", report.ID), admin, nil, &history)
	if len(history) != 1 || history[0].NewStatusID != 3 || history[0].Note != "domain suspended" {
		t.Fatalf("history = %+v", history)
	}

	var comments []struct {
		ID uint `json:"id"`
	}
	s.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/v1/comments/report/%d", report.ID), "", nil, &comments)
	if len(comments) != 2 {
		t.Fatalf("comments after completion = %d, want 2", len(comments))
	}

	var inbox []struct {
		ID       uint   `json:"id"`
		TypeName string `json:"type_name"`
		IsRead   bool   `json:"is_read"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/notifications", ann, nil, &inbox)
	if len(inbox) != 3 {
		t.Fatalf("owner inbox = %+v, want comment, completion comment and status change", inbox)
	}
	if inbox[0].TypeName != "REPORT_STATUS_CHANGE" {
		t.Errorf("newest notification = %q", inbox[0].TypeName)
	}
	code, env = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/users/notifications/%d/read", inbox[0].ID), bob, nil)
	if code != http.StatusForbidden || env.Code != 40360 {
		t.Fatalf("marking someone else's notification = %d %d", code, env.Code)
	}
	if code, _ := s.do(http.MethodPatch, "/api/v1/users/notifications/read-all", ann, nil); code != http.StatusNoContent {
		t.Fatalf("read-all = %d", code)
	}
	var has struct {
		HasUnread bool `json:"has_unread"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/notifications/has-unread", ann, nil, &has)
	if has.HasUnread {
		t.Fatal("unread left after read-all")
	}

	code, env = s.do(http.MethodDelete, reportPath, bob, nil)
	if code != http.StatusForbidden || env.Code != 40310 {
		t.Fatalf("delete by stranger = %d %d", code, env.Code)
	}
	if code, _ := s.do(http.MethodDelete, reportPath, ann, nil); code != http.StatusOK && code != http.StatusNoContent {
		t.Fatalf("delete by owner = %d", code)
	}
	code, env = s.do(http.MethodGet, reportPath, "", nil)
	if code != http.StatusNotFound || env.Code != 40410 {
		t.Fatalf("deleted report = %d %d", code, env.Code)
	}

	var stats struct {
		UserCount   int64 `json:"user_count"`
		ReportCount int64 `json:"report_count"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/stats", "", nil, &stats)
	if stats.UserCount != 3 || stats.ReportCount != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAdminNotifications(t *testing.T) {
	s := newTestServer(t)
	adminID, admin := s.signup("admin@example.com", "Admin")
	annID, ann := s.signup("ann@example.com", "Ann")

	var sent struct {
		SentTo int `json:"sent_to"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/admin/notifications/system-announcement", admin,
		gin.H{"title": "Maintenance", "message": "Tonight at 22:00", "user_ids": []uint{annID, annID}}, &sent)
	if sent.SentTo != 1 {
		t.Fatalf("sent_to = %d", sent.SentTo)
	}

	// opt out of admin messages, then the admin message is skipped
	s.expect(http.StatusOK, http.MethodPut, "/api/v1/users/notifications/preferences", ann,
		gin.H{"type_id": 5, "enabled": false}, nil)
	var skipped struct {
		Skipped bool `json:"skipped"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/admin/notifications/admin-message", admin,
		gin.H{"user_id": annID, "title": "Hi", "message": "Please check your report"}, &skipped)
	if !skipped.Skipped {
		t.Fatal("admin message not reported as skipped")
	}

	var summary struct {
		Total  int64 `json:"total"`
		Unread int64 `json:"unread"`
	}
	s.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/v1/admin/notifications/user/%d/summary", annID), admin, nil, &summary)
	if summary.Total != 1 || summary.Unread != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	for _, path := range []string{"/api/v1/users/notifications", "/api/v1/users/notifications?limit=0"} {
		var inbox []struct {
			ID uint `json:"id"`
		}
		s.expect(http.StatusOK, http.MethodGet, path, ann, nil, &inbox)
		if len(inbox) != 1 {
			t.Fatalf("GET %s returned %d notifications, want 1", path, len(inbox))
		}
	}

	code, env := s.do(http.MethodPost, "/api/v1/admin/notifications", admin,
		gin.H{"user_id": 999999, "type_id": 5, "title": "Hi", "message": "nobody home"})
	if code != http.StatusNotFound || env.Code != 40462 {
		t.Fatalf("notification for unknown user = %d %d", code, env.Code)
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/admin/notifications/system-announcement", admin,
		gin.H{"title": "Ghosts", "message": "boo", "user_ids": []uint{777777, 888888}}, &sent)
	if sent.SentTo != 0 {
		t.Fatalf("announcement to unknown users sent_to = %d", sent.SentTo)
	}

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/notifications/test-notification/%d", annID), admin, nil)
	if code != http.StatusBadRequest || env.Code != 40073 {
		t.Fatalf("test notification to non-admin = %d %d", code, env.Code)
	}
	s.expect(http.StatusCreated, http.MethodPost, fmt.Sprintf("/api/v1/admin/notifications/test-notification/%d", adminID), admin, nil, nil)

	code, env = s.do(http.MethodDelete, "/api/v1/admin/notifications/cleanup/abc", admin, nil)
	if code != http.StatusBadRequest || env.Code != 40072 {
		t.Fatalf("cleanup with bad days = %d %d", code, env.Code)
	}
	s.expect(http.StatusOK, http.MethodDelete, "/api/v1/admin/notifications/cleanup/30", admin, nil, nil)

	if code, _ := s.do(http.MethodGet, "/api/v1/admin/user/list", ann, nil); code != http.StatusForbidden {
		t.Fatalf("user list for non-admin = %d", code)
	}
	var users []struct {
		Email string `json:"email"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/admin/user/list", admin, nil, &users)
	if len(users) != 2 {
		t.Fatalf("users = %+v", users)
	}
}

func TestInternalNotifications(t *testing.T) {
	s := newTestServer(t)
	annID, ann := s.signup("ann@example.com", "Ann")
	body := gin.H{"user_id": annID, "report_id": 9, "report_title": "Fake bank", "new_status": "completed"}

	code, env := s.do(http.MethodPost, "/api/v1/notifications/internal/report-status-change", "", body)
	if code != http.StatusForbidden || env.Code != 40302 {
		t.Fatalf("without key = %d %d", code, env.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/internal/report-status-change", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Key", "internal-key")
	if code, env := s.serve(req); code != http.StatusOK {
		t.Fatalf("with key = %d %d %s", code, env.Code, env.Message)
	}

	var count struct {
		Count int64 `json:"count"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/notifications/unread/count", ann, nil, &count)
	if count.Count != 1 {
		t.Fatalf("unread = %d", count.Count)
	}

	var constants map[string]uint
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/notifications/constants/types", "", nil, &constants)
	if constants["ADMIN_MESSAGE"] != 5 {
		t.Fatalf("constants = %v", constants)
	}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestRegisterSuperBootstrap(t *testing.T) {
	s := newTestServer(t)
	root := gin.H{"email": "root@example.com", "name": "Root", "password": "secret123"}

	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/admin/register-super", "", root, nil)

	second := gin.H{"email": "root2@example.com", "name": "Root2", "password": "secret123"}
	code, env := s.do(http.MethodPost, "/api/v1/admin/register-super", "", second)
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous after bootstrap = %d %d", code, env.Code)
	}

	_, admin := s.signup("admin@example.com", "Admin")
	code, env = s.do(http.MethodPost, "/api/v1/admin/register-super", admin, second)
	if code != http.StatusForbidden || env.Code != 40303 {
		t.Fatalf("plain admin = %d %d", code, env.Code)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "root@example.com", "password": "secret123"}, &login)
	s.expect(http.StatusCreated, http.MethodPost, "/api/v1/admin/register-super", login.AccessToken, second, nil)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("ann@example.com", "Ann")

	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/me", token, nil, nil)
	if code, _ := s.do(http.MethodPost, "/api/v1/auth/logout", token, nil); code >= 300 {
		t.Fatalf("logout = %d", code)
	}
	code, env := s.do(http.MethodGet, "/api/v1/users/me", token, nil)
	if code != http.StatusUnauthorized || env.Code != 40104 {
		t.Fatalf("revoked token = %d %d", code, env.Code)
	}
}

func TestRefreshToken(t *testing.T) {
	s := newTestServer(t)
	s.signup("ann@example.com", "Ann")

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": "ann@example.com", "password": "secret123"}, &pair)

	for _, token := range []string{"", "garbage", pair.AccessToken} {
		code, env := s.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": token})
		if code != http.StatusUnauthorized || env.Code != 40111 {
			t.Fatalf("refresh with %q = %d %d", token, code, env.Code)
		}
	}

	var fresh struct {
		AccessToken string `json:"access_token"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/refresh", "",
		gin.H{"refresh_token": pair.RefreshToken}, &fresh)
	if fresh.AccessToken == "" {
		t.Fatal("refresh returned no access token")
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/users/me", fresh.AccessToken, nil, nil)

	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/logout", fresh.AccessToken,
		gin.H{"refresh_token": pair.RefreshToken}, nil)
	code, env := s.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	if code != http.StatusUnauthorized || env.Code != 40111 {
		t.Fatalf("refresh after logout = %d %d", code, env.Code)
	}
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t)
	const email = "reset-flow@example.com"
	s.signup(email, "Rita")

	forgot := func(addr string) {
		t.Helper()
		env := s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/password/forgot", "", gin.H{"email": addr}, nil)
		if env.Code != 0 {
			t.Fatalf("forgot %s = %d %s", addr, env.Code, env.Message)
		}
	}
	forgot("nobody-reset@example.com")
	if _, ok := utils.CacheGetBytes("reset:email:nobody-reset@example.com"); ok {
		t.Fatal("reset code stored for an unknown account")
	}

	forgot(strings.ToUpper(email))
	stored, ok := utils.CacheGetBytes("reset:email:" + email)
	if !ok || len(stored) != 6 {
		t.Fatalf("stored reset code = %q %v", stored, ok)
	}
	code := string(stored)

	// a second request inside the cooldown answers the same and keeps the code
	forgot(email)
	if again, _ := utils.CacheGetBytes("reset:email:" + email); string(again) != code {
		t.Fatalf("code replaced during cooldown: %q -> %q", code, again)
	}

	reset := func(c, password string) (int, envelope) {
		return s.do(http.MethodPost, "/api/v1/auth/password/reset", "",
			gin.H{"email": email, "code": c, "password": password})
	}
	if status, env := reset(code, "abc"); status != http.StatusBadRequest || env.Code != 40003 {
		t.Fatalf("short password = %d %d", status, env.Code)
	}
	if status, env := reset(code, "newsecret456"); status != http.StatusOK {
		t.Fatalf("reset = %d %d %s", status, env.Code, env.Message)
	}
	if status, env := reset(code, "another789"); status != http.StatusBadRequest || env.Code != 40007 {
		t.Fatalf("reused code = %d %d", status, env.Code)
	}

	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "secret123"})
	if status != http.StatusUnauthorized || env.Code != 40106 {
		t.Fatalf("old password = %d %d", status, env.Code)
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"email": email, "password": "newsecret456"}, nil)
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("ann@example.com", "Ann")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "phish shot.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("not really a png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	code, env := s.serve(req)
	if code != http.StatusCreated {
		t.Fatalf("upload = %d %d %s", code, env.Code, env.Message)
	}
	var out struct {
		Filename string `json:"filename"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out.Filename, "-phish_shot.png") || out.Path != "/public/uploads/"+out.Filename {
		t.Fatalf("upload = %+v", out)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "uploads", out.Filename)); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	// served back as static content
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, out.Path, nil))
	if w.Code != http.StatusOK || w.Body.String() != "not really a png" {
		t.Fatalf("static = %d %q", w.Code, w.Body.String())
	}

	var files []struct {
		Filename string `json:"filename"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/files/mine", token, nil, &files)
	if len(files) != 1 {
		t.Fatalf("my files = %+v", files)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if code, env := s.serve(req); code != http.StatusBadRequest || env.Code != 40080 {
		t.Fatalf("upload without file = %d %d", code, env.Code)
	}

	small := config.Get()
	small.Storage.MaxUploadMB = 1
	config.Use(small)
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	part, err = mw.CreateFormFile("file", "big.bin")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(bytes.Repeat([]byte("x"), 1024*1024+1))
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	if code, env := s.serve(req); code != http.StatusBadRequest || env.Code != 40081 {
		t.Fatalf("oversized upload = %d %d", code, env.Code)
	}
}

func TestHealthDocsAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	s.expect(http.StatusOK, http.MethodGet, "/health", "", nil, nil)

	code, env := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	if code != http.StatusNotFound || env.Code != 40400 {
		t.Fatalf("no route = %d %d", code, env.Code)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("openapi = %d", w.Code)
	}
	var doc struct {
		OpenAPI string                            `json:"openapi"`
		Paths   map[string]map[string]interface{} `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.OpenAPI != "3.0.3" {
		t.Errorf("openapi version = %q", doc.OpenAPI)
	}
	if _, ok := doc.Paths["/api/v1/reports/{id}"]["put"]; !ok {
		t.Error("PUT /api/v1/reports/{id} missing from document")
	}
	if _, ok := doc.Paths["/health"]; !ok {
		t.Error("/health missing from document")
	}

	var public struct {
		MaxUploadMB int  `json:"max_upload_mb"`
		SMTPEnabled bool `json:"smtp_enabled"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/v1/config/public", "", nil, &public)
	if public.MaxUploadMB != 10 || public.SMTPEnabled {
		t.Fatalf("public config = %+v", public)
	}
}
