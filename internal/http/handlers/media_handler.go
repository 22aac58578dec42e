package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/storage"
)

// Разрешённые типы фотографий
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// MediaHandler управляет загрузкой и отдачей фотографий.
type MediaHandler struct {
	repo    *repository.MediaRepository
	storage *storage.PhotoStorage
}

// NewMediaHandler создаёт хэндлер.
func NewMediaHandler(repo *repository.MediaRepository, storage *storage.PhotoStorage) *MediaHandler {
	return &MediaHandler{repo: repo, storage: storage}
}

// Upload обрабатывает POST /media/photos.
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}

	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}
	if file.Size > h.storage.MaxUploadBytes() {
		common.RespondBadRequest(c, fmt.Sprintf("файл больше лимита %d байт", h.storage.MaxUploadBytes()))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondBadRequest(c, "неподдерживаемый формат файла, разрешены jpeg, png и webp")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, err)
		return
	}
	defer src.Close()

	// Тип проверяется по магическим байтам, а не по расширению.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла, разрешены только изображения")
		return
	}

	contentType := kind.MIME.Value
	if !allowedMimeTypes[contentType] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s), разрешены jpeg, png и webp", contentType))
		return
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		common.RespondError(c, err)
		return
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			common.RespondBadRequest(c, err.Error())
			return
		}
		common.RespondError(c, err)
		return
	}

	media := &models.MediaFile{
		UserID:   &userID,
		FilePath: filepath.ToSlash(relativePath),
		FileType: contentType,
		FileSize: size,
		IsPublic: true,
	}

	if err := h.repo.Create(c.Request.Context(), media); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, media)
}

// Serve обрабатывает GET /media/:id — отдача файла.
func (h *MediaHandler) Serve(c *gin.Context) {
	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, err := h.repo.GetByID(c.Request.Context(), mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "файл не найден"})
			return
		}
		common.RespondError(c, err)
		return
	}

	f, err := h.storage.Open(c.Request.Context(), media.FilePath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "файл не найден"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", media.FileType)
	c.Header("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(c.Writer, f); err != nil {
		_ = c.Error(err)
	}
}

// Delete обрабатывает DELETE /media/:id.
func (h *MediaHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, err := h.repo.GetByID(c.Request.Context(), mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "файл не найден"})
			return
		}
		common.RespondError(c, err)
		return
	}

	if media.UserID == nil || *media.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "нет прав на удаление этого файла"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), mediaID, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	if err := h.storage.Delete(c.Request.Context(), media.FilePath); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
