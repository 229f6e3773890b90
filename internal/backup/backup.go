// Package backup writes and restores snapshots of categories and entries.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kairos/internal/models"
	"kairos/internal/store"
	"kairos/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const snapshotVersion = 1

// ErrKeyRequired is returned when an encrypted backup is read without a key.
var ErrKeyRequired = errors.New("backup is encrypted but no encryption key is configured")

// Snapshot is the content of a backup file.
type Snapshot struct {
	Version    int              `json:"version"`
	CreatedAt  time.Time        `json:"created_at"`
	Categories []CategoryRecord `json:"categories"`
	Entries    []EntryRecord    `json:"entries"`
}

type CategoryRecord struct {
	ID          uint      `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EntryRecord struct {
	ID         uint            `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Timestamp  time.Time       `json:"timestamp"`
	CategoryID uint            `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Service manages backup files and their records.
type Service struct {
	db  *gorm.DB
	dir string
	key string
}

// NewService creates a backup service. Files are AES encrypted when key is not empty.
func NewService(db *gorm.DB, dir, key string) *Service {
	return &Service{db: db, dir: dir, key: key}
}

// Create snapshots both relations into a new file in the backup directory.
func (s *Service) Create(ctx context.Context) (*models.Backup, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	encrypted := s.key != ""
	ext := ".json"
	if encrypted {
		raw, err = util.EncryptAES(s.key, raw)
		if err != nil {
			return nil, fmt.Errorf("encrypt snapshot: %w", err)
		}
		ext = ".bin"
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	// timestamp plus uuid keeps names unique and sortable
	fileName := fmt.Sprintf("backup-%s-%s%s", snap.CreatedAt.Format("20060102T150405"), uuid.NewString(), ext)
	filePath := filepath.Join(s.dir, fileName)
	if err := os.WriteFile(filePath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write backup file: %w", err)
	}

	b := models.Backup{
		FileName:   fileName,
		FilePath:   filePath,
		Size:       int64(len(raw)),
		Encrypted:  encrypted,
		Categories: len(snap.Categories),
		Entries:    len(snap.Entries),
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("save backup record: %w", err)
	}

	slog.InfoContext(ctx, "created backup", "id", b.ID, "file", fileName,
		"categories", b.Categories, "entries", b.Entries, "encrypted", encrypted)
	return &b, nil
}

func (s *Service) snapshot(ctx context.Context) (*Snapshot, error) {
	var cats []models.Category
	var entries []models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&cats).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").Find(&entries).Error
	})
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	snap := &Snapshot{
		Version:    snapshotVersion,
		CreatedAt:  time.Now().UTC(),
		Categories: make([]CategoryRecord, 0, len(cats)),
		Entries:    make([]EntryRecord, 0, len(entries)),
	}
	for _, c := range cats {
		snap.Categories = append(snap.Categories, CategoryRecord{
			ID:          c.ID,
			Description: c.Description,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, EntryRecord{
			ID:         e.ID,
			Amount:     e.Amount,
			Note:       e.Note,
			Timestamp:  e.Timestamp,
			CategoryID: e.CategoryID,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	return snap, nil
}

// List returns all backups, newest first.
func (s *Service) List(ctx context.Context) ([]models.Backup, error) {
	list := make([]models.Backup, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return list, nil
}

// Get returns the backup record with the given id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Backup, error) {
	var b models.Backup
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return &b, nil
}

// Load reads, decrypts and parses a backup file.
func (s *Service) Load(b *models.Backup) (*Snapshot, error) {
	raw, err := os.ReadFile(b.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read backup file: %w", err)
	}
	if b.Encrypted {
		if s.key == "" {
			return nil, ErrKeyRequired
		}
		if raw, err = util.DecryptAES(s.key, raw); err != nil {
			return nil, fmt.Errorf("decrypt backup file: %w", err)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse backup file: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported backup version %d", snap.Version)
	}
	return &snap, nil
}

// Restore replaces every category and entry with the content of the backup.
// Ids are preserved. Either everything is replaced or nothing is.
func (s *Service) Restore(ctx context.Context, id uint) (*Snapshot, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.Load(b)
	if err != nil {
		return nil, err
	}
	if err := validate(snap); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Entry{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Category{}).Error; err != nil {
			return err
		}

		cats := make([]models.Category, 0, len(snap.Categories))
		for _, c := range snap.Categories {
			cats = append(cats, models.Category{
				ID:          c.ID,
				Description: c.Description,
				CreatedAt:   c.CreatedAt,
				UpdatedAt:   c.UpdatedAt,
			})
		}
		if len(cats) > 0 {
			if err := tx.CreateInBatches(&cats, 200).Error; err != nil {
				return err
			}
		}

		entries := make([]models.Entry, 0, len(snap.Entries))
		for _, e := range snap.Entries {
			entries = append(entries, models.Entry{
				ID:         e.ID,
				Amount:     e.Amount,
				Note:       e.Note,
				Timestamp:  e.Timestamp,
				CategoryID: e.CategoryID,
				CreatedAt:  e.CreatedAt,
				UpdatedAt:  e.UpdatedAt,
			})
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(&entries, 200).Error; err != nil {
				return err
			}
		}
		return resetSequences(tx)
	})
	if err != nil {
		return nil, fmt.Errorf("restore backup %d: %w", id, err)
	}

	slog.InfoContext(ctx, "restored backup", "id", id,
		"categories", len(snap.Categories), "entries", len(snap.Entries))
	return snap, nil
}

// resetSequences moves postgres id sequences past the restored ids.
// SQLite derives the next rowid from the table itself.
func resetSequences(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range []string{"categories", "entries"} {
		sql := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table)
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

// validate checks a snapshot against the same rules the stores enforce.
func validate(snap *Snapshot) error {
	ids := make(map[uint]bool, len(snap.Categories))
	descriptions := make(map[string]bool, len(snap.Categories))
	for _, c := range snap.Categories {
		if c.ID == 0 || ids[c.ID] {
			return &store.ValidationError{Field: "categories", Message: fmt.Sprintf("invalid or repeated id %d", c.ID)}
		}
		if err := util.ValidateDescription(c.Description); err != nil {
			return &store.ValidationError{Field: "description", Message: err.Error()}
		}
		if descriptions[c.Description] {
			return &store.DuplicateError{Field: "description", Value: c.Description}
		}
		ids[c.ID] = true
		descriptions[c.Description] = true
	}

	seen := make(map[uint]bool, len(snap.Entries))
	for _, e := range snap.Entries {
		if e.ID == 0 || seen[e.ID] {
			return &store.ValidationError{Field: "entries", Message: fmt.Sprintf("invalid or repeated id %d", e.ID)}
		}
		if err := util.ValidateAmount(e.Amount); err != nil {
			return &store.ValidationError{Field: "amount", Message: err.Error()}
		}
		if err := util.ValidateNote(e.Note); err != nil {
			return &store.ValidationError{Field: "note", Message: err.Error()}
		}
		if !ids[e.CategoryID] {
			return &store.ReferenceError{Field: "category_id", ID: e.CategoryID}
		}
		seen[e.ID] = true
	}
	return nil
}

// Delete removes the backup record and its file. It reports whether the backup existed.
func (s *Service) Delete(ctx context.Context, id uint) (bool, error) {
	b, err := s.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Backup{}, b.ID).Error; err != nil {
		return false, fmt.Errorf("delete backup record: %w", err)
	}
	// record first; a leftover file is only logged
	if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "remove backup file failed", "file", b.FilePath, "error", err)
	}

	slog.InfoContext(ctx, "deleted backup", "id", b.ID, "file", b.FileName)
	return true, nil
}
