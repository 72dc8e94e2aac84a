package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/models"
	"github.com/cppla/phishguard/storage"
	"github.com/cppla/phishguard/utils"
)

// FileController stores uploads for report and comment images.
type FileController struct {
	db    *gorm.DB
	store storage.Store
}

func NewFileController(db *gorm.DB, store storage.Store) *FileController {
	return &FileController{db: db, store: store}
}

// uploadName prefixes a uuid and replaces spaces so names are URL-safe and unique.
func uploadName(original string) string {
	name := filepath.Base(strings.TrimSpace(original))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return uuid.NewString() + "-" + name
}

// Upload handles a multipart upload in the "file" field.
func (f *FileController) Upload(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "no file uploaded")
		return
	}
	defer file.Close()

	maxMB := config.Get().Storage.MaxUploadMB
	maxSize := int64(maxMB) * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40081, fmt.Sprintf("file size exceeds %dMB", maxMB))
		return
	}

	name := uploadName(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path, err := f.store.Save(ctx.Request.Context(), name, file, header.Size, contentType)
	if err != nil {
		utils.Logger.Error("store upload failed", zap.String("name", name), zap.String("storage", f.store.Kind()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to save file")
		return
	}

	record := models.UploadedFile{
		UserID:      userID,
		Filename:    name,
		Path:        path,
		Storage:     f.store.Kind(),
		Size:        header.Size,
		ContentType: contentType,
	}
	if err := f.db.Create(&record).Error; err != nil {
		_ = f.store.Delete(ctx.Request.Context(), path)
		utils.Logger.Error("record upload failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to record upload")
		return
	}

	utils.Created(ctx, gin.H{"filename": name, "path": path})
}

// ListMine returns the caller's uploads, newest first.
func (f *FileController) ListMine(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var files []models.UploadedFile
	if err := f.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&files).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to load uploads")
		return
	}
	utils.Success(ctx, files)
}
