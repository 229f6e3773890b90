package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"kairos/internal/backup"
	"kairos/internal/models"
	"kairos/internal/store"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
)

// BackupService is what BackupHandler needs from the backup service.
type BackupService interface {
	Create(ctx context.Context) (*models.Backup, error)
	List(ctx context.Context) ([]models.Backup, error)
	Get(ctx context.Context, id uint) (*models.Backup, error)
	Restore(ctx context.Context, id uint) (*backup.Snapshot, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// BackupHandler serves /backups.
type BackupHandler struct {
	Service BackupService
}

func NewBackupHandler(s BackupService) *BackupHandler {
	return &BackupHandler{Service: s}
}

type backupResp struct {
	ID         uint      `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	Encrypted  bool      `json:"encrypted"`
	Categories int       `json:"categories"`
	Entries    int       `json:"entries"`
	CreatedAt  time.Time `json:"created_at"`
}

func toBackupResp(b *models.Backup) backupResp {
	return backupResp{
		ID:         b.ID,
		FileName:   b.FileName,
		Size:       b.Size,
		Encrypted:  b.Encrypted,
		Categories: b.Categories,
		Entries:    b.Entries,
		CreatedAt:  b.CreatedAt,
	}
}

// CreateBackup snapshots all categories and entries into a new backup file.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	b, err := h.Service.Create(c.Request.Context())
	if err != nil {
		respondError(c, "backup", err)
		return
	}
	c.JSON(http.StatusCreated, toBackupResp(b))
}

func (h *BackupHandler) ListBackups(c *gin.Context) {
	list, err := h.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, "backup", err)
		return
	}

	items := make([]backupResp, 0, len(list))
	for i := range list {
		items = append(items, toBackupResp(&list[i]))
	}
	c.JSON(http.StatusOK, items)
}

// DownloadBackup streams the backup file as an attachment.
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	b, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "backup", err)
		return
	}
	if _, err := os.Stat(b.FilePath); err != nil {
		if os.IsNotExist(err) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup file is missing")
			return
		}
		respondError(c, "backup", err)
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", b.FileName))
	c.File(b.FilePath)
}

// RestoreBackup replaces all categories and entries with the backup content.
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	snap, err := h.Service.Restore(c.Request.Context(), id)
	if errors.Is(err, backup.ErrKeyRequired) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}
	if err != nil {
		respondError(c, "backup", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": len(snap.Categories),
		"entries":    len(snap.Entries),
	})
}

// DeleteBackup removes the backup record and its file.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	found, err := h.Service.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, "backup", err)
		return
	}
	if !found {
		respondError(c, "backup", store.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
