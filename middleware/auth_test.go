package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	useConfig(func(*config.AppConfig) {})
	os.Exit(m.Run())
}

func useConfig(edit func(*config.AppConfig)) {
	c := config.Defaults()
	c.Auth.JWTSecret = "middleware-test-secret"
	c.Auth.AdminEmails = []string{"boss@example.com"}
	c.Redis.Host = ""
	edit(&c)
	config.Use(c)
}

// identityRouter echoes what the auth middleware put in the context.
func identityRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{
			"user_id":  id,
			"is_admin": ctx.GetBool(ContextIsAdminKey),
		})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func token(t *testing.T, id uint, email string, admin bool, kind string) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, email, admin, kind, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthRequired(t *testing.T) {
	r := identityRouter(AuthRequired())
	revoked := token(t, 3, "ann@example.com", false, utils.TokenTypeAccess)
	utils.BlacklistToken(revoked, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		code   float64
	}{
		{"missing", "", 40101},
		{"wrong scheme", "Basic abc", 40102},
		{"empty token", "Bearer  ", 40103},
		{"revoked", "Bearer " + revoked, 40104},
		{"garbage", "Bearer not.a.jwt", 40105},
		{"refresh token", "Bearer " + token(t, 3, "ann@example.com", false, utils.TokenTypeRefresh), 40105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "Authorization", tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if got := decode(t, w)["code"]; got != tt.code {
				t.Fatalf("code = %v, want %v", got, tt.code)
			}
		})
	}

	w := do(r, "Authorization", "bearer "+token(t, 3, "ann@example.com", false, utils.TokenTypeAccess))
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["user_id"] != float64(3) || body["is_admin"] != false {
		t.Fatalf("identity = %v", body)
	}
}

func TestAdminByConfiguredEmail(t *testing.T) {
	r := identityRouter(AuthRequired(), AdminRequired())

	w := do(r, "Authorization", "Bearer "+token(t, 1, "ann@example.com", false, utils.TokenTypeAccess))
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != float64(40301) {
		t.Fatalf("non-admin = %d %s", w.Code, w.Body.String())
	}

	w = do(r, "Authorization", "Bearer "+token(t, 2, "Boss@Example.com", false, utils.TokenTypeAccess))
	if w.Code != http.StatusOK || decode(t, w)["is_admin"] != true {
		t.Fatalf("configured admin = %d %s", w.Code, w.Body.String())
	}

	w = do(r, "Authorization", "Bearer "+token(t, 4, "ops@example.com", true, utils.TokenTypeAccess))
	if w.Code != http.StatusOK {
		t.Fatalf("admin claim = %d %s", w.Code, w.Body.String())
	}
}

func TestOptionalAuth(t *testing.T) {
	r := identityRouter(OptionalAuth())

	for _, header := range []string{"", "Bearer nonsense", "Bearer " + token(t, 5, "a@example.com", false, utils.TokenTypeRefresh)} {
		w := do(r, "Authorization", header)
		if w.Code != http.StatusOK {
			t.Fatalf("anonymous %q status = %d", header, w.Code)
		}
		if got := decode(t, w)["user_id"]; got != nil {
			t.Fatalf("anonymous %q user_id = %v", header, got)
		}
	}

	w := do(r, "Authorization", "Bearer "+token(t, 5, "a@example.com", false, utils.TokenTypeAccess))
	if got := decode(t, w)["user_id"]; got != float64(5) {
		t.Fatalf("user_id = %v, want 5", got)
	}
}

func TestInternalKeyRequired(t *testing.T) {
	defer useConfig(func(*config.AppConfig) {})

	r := identityRouter(InternalKeyRequired())
	w := do(r, InternalKeyHeader, "anything")
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != float64(40302) {
		t.Fatalf("without configured key = %d %s", w.Code, w.Body.String())
	}

	useConfig(func(c *config.AppConfig) { c.App.InternalAPIKey = "s3cret" })
	if w := do(r, InternalKeyHeader, "wrong"); w.Code != http.StatusForbidden {
		t.Fatalf("wrong key status = %d", w.Code)
	}
	if w := do(r, "", ""); w.Code != http.StatusForbidden {
		t.Fatalf("missing key status = %d", w.Code)
	}
	if w := do(r, InternalKeyHeader, "s3cret"); w.Code != http.StatusOK {
		t.Fatalf("right key status = %d", w.Code)
	}
}
