package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kairos/internal/models"
	"kairos/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryInput holds the fields of a new entry. A nil Timestamp means "now".
// Timestamps are stored in UTC so they sort correctly as text on SQLite.
type EntryInput struct {
	Amount     decimal.Decimal
	Note       string
	CategoryID uint
	Timestamp  *time.Time
}

// EntryPatch lists the entry fields an update may change.
// Nil fields are left untouched.
type EntryPatch struct {
	Amount     *decimal.Decimal
	Note       *string
	CategoryID *uint
	Timestamp  *time.Time
}

// EntryStore owns ExpenseEntry rows. The category reference is enforced by
// the foreign key, not by a lookup before writing.
type EntryStore struct {
	db     *gorm.DB
	limits Limits
	now    func() time.Time
}

func NewEntryStore(db *gorm.DB, limits Limits) *EntryStore {
	return &EntryStore{db: db, limits: limits, now: time.Now}
}

var orderByID = clause.OrderByColumn{Column: clause.Column{Name: "id"}}

// Create inserts an entry.
func (s *EntryStore) Create(ctx context.Context, in EntryInput) (*models.Entry, error) {
	if err := util.ValidateAmount(in.Amount); err != nil {
		return nil, invalid("amount", err)
	}
	if err := util.ValidateNote(in.Note); err != nil {
		return nil, invalid("note", err)
	}
	if in.CategoryID == 0 {
		return nil, &ValidationError{Field: "category_id", Message: "category_id is required"}
	}

	ts := s.now()
	if in.Timestamp != nil {
		if in.Timestamp.IsZero() {
			return nil, &ValidationError{Field: "timestamp", Message: "timestamp must not be zero"}
		}
		ts = *in.Timestamp
	}
	ts = ts.UTC()

	entry := models.Entry{
		Amount:     in.Amount,
		Note:       in.Note,
		Timestamp:  ts,
		CategoryID: in.CategoryID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, entryWriteError("create", in.CategoryID, err)
	}

	slog.InfoContext(ctx, "created entry", "id", entry.ID, "category_id", entry.CategoryID, "amount", entry.Amount.String())
	return &entry, nil
}

// Get returns the entry with the given id.
func (s *EntryStore) Get(ctx context.Context, id uint) (*models.Entry, error) {
	var entry models.Entry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return &entry, nil
}

// List returns one page of entries in creation order.
func (s *EntryStore) List(ctx context.Context, p Page) ([]models.Entry, error) {
	p = p.normalize(s.limits)

	entries := make([]models.Entry, 0)
	if err := s.db.WithContext(ctx).
		Order(orderByID).
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries.
func (s *EntryStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Entry{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return total, nil
}

// ListByCategory returns every entry of a category. An unknown category
// simply has no entries.
func (s *EntryStore) ListByCategory(ctx context.Context, categoryID uint) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	if err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order(orderByID).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries of category %d: %w", categoryID, err)
	}
	return entries, nil
}

// All returns every entry, newest first, with its category loaded.
// A non-nil categoryID restricts the result to that category.
func (s *EntryStore) All(ctx context.Context, categoryID *uint) ([]models.Entry, error) {
	q := s.db.WithContext(ctx).Preload("Category")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	entries := make([]models.Entry, 0)
	if err := q.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list all entries: %w", err)
	}
	return entries, nil
}

// Update applies the supplied fields of patch to the entry.
func (s *EntryStore) Update(ctx context.Context, id uint, patch EntryPatch) (*models.Entry, error) {
	updates := map[string]any{}
	if patch.Amount != nil {
		if err := util.ValidateAmount(*patch.Amount); err != nil {
			return nil, invalid("amount", err)
		}
		updates["amount"] = *patch.Amount
	}
	if patch.Note != nil {
		if err := util.ValidateNote(*patch.Note); err != nil {
			return nil, invalid("note", err)
		}
		updates["note"] = *patch.Note
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == 0 {
			return nil, &ValidationError{Field: "category_id", Message: "category_id must be a positive id"}
		}
		updates["category_id"] = *patch.CategoryID
	}
	if patch.Timestamp != nil {
		if patch.Timestamp.IsZero() {
			return nil, &ValidationError{Field: "timestamp", Message: "timestamp must not be zero"}
		}
		updates["timestamp"] = patch.Timestamp.UTC()
	}

	var entry models.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&entry).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&entry, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		var categoryID uint
		if patch.CategoryID != nil {
			categoryID = *patch.CategoryID
		}
		return nil, entryWriteError("update", categoryID, err)
	}

	if len(updates) > 0 {
		slog.InfoContext(ctx, "updated entry", "id", entry.ID, "fields", len(updates))
	}
	return &entry, nil
}

// Delete removes the entry and reports whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id uint) (bool, error) {
	var found bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Entry{}, id)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete entry %d: %w", id, err)
	}

	if found {
		slog.InfoContext(ctx, "deleted entry", "id", id)
	}
	return found, nil
}

func entryWriteError(op string, categoryID uint, err error) error {
	if isForeignKeyViolation(err) {
		return &ReferenceError{Field: "category_id", ID: categoryID}
	}
	return fmt.Errorf("%s entry: %w", op, err)
}
