package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"service error", services.Conflict(40910, "already voted"), http.StatusConflict, 40910},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			respondError(ctx, tt.err)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Code int `json:"code"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body.Code != tt.code {
				t.Fatalf("code = %d, want %d", body.Code, tt.code)
			}
		})
	}
}

func TestUploadName(t *testing.T) {
	name := uploadName("../../etc/my shot.png")
	if len(name) != 36+len("-my_shot.png") || name[36:] != "-my_shot.png" {
		t.Fatalf("uploadName = %q", name)
	}
}
