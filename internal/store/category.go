package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kairos/internal/models"
	"kairos/internal/util"

	"gorm.io/gorm"
)

// CategoryInput holds the fields of a new category.
type CategoryInput struct {
	Description string
}

// CategoryPatch lists the category fields an update may change.
// Nil fields are left untouched.
type CategoryPatch struct {
	Description *string
}

// CategoryStore owns ExpenseCategory rows.
type CategoryStore struct {
	db     *gorm.DB
	limits Limits
}

func NewCategoryStore(db *gorm.DB, limits Limits) *CategoryStore {
	return &CategoryStore{db: db, limits: limits}
}

// Create inserts a category. A description already in use yields a *DuplicateError.
func (s *CategoryStore) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := util.ValidateDescription(in.Description); err != nil {
		return nil, invalid("description", err)
	}

	cat := models.Category{Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&cat).Error
	})
	if err != nil {
		return nil, categoryWriteError("create", in.Description, err)
	}

	slog.InfoContext(ctx, "created category", "id", cat.ID, "description", cat.Description)
	return &cat, nil
}

// Get returns the category with the given id, optionally with its entries.
func (s *CategoryStore) Get(ctx context.Context, id uint, withEntries bool) (*models.Category, error) {
	q := s.db.WithContext(ctx)
	if withEntries {
		q = q.Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order(orderByID)
		})
	}

	var cat models.Category
	if err := q.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &cat, nil
}

// List returns one page of categories in creation order.
func (s *CategoryStore) List(ctx context.Context, p Page) ([]models.Category, error) {
	p = p.normalize(s.limits)

	cats := make([]models.Category, 0)
	if err := s.db.WithContext(ctx).
		Order(orderByID).
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Count returns the number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return total, nil
}

// Update applies the supplied fields of patch to the category.
func (s *CategoryStore) Update(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error) {
	updates := map[string]any{}
	if patch.Description != nil {
		if err := util.ValidateDescription(*patch.Description); err != nil {
			return nil, invalid("description", err)
		}
		updates["description"] = *patch.Description
	}

	var cat models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cat, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&cat).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&cat, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		value := ""
		if patch.Description != nil {
			value = *patch.Description
		}
		return nil, categoryWriteError("update", value, err)
	}

	if len(updates) > 0 {
		slog.InfoContext(ctx, "updated category", "id", cat.ID, "description", cat.Description)
	}
	return &cat, nil
}

// Delete removes the category and every entry referencing it in one
// transaction. It reports whether the category existed.
func (s *CategoryStore) Delete(ctx context.Context, id uint) (bool, error) {
	var found bool
	var removedEntries int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("category_id = ?", id).Delete(&models.Entry{})
		if res.Error != nil {
			return res.Error
		}
		removedEntries = res.RowsAffected

		res = tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}

	if found {
		slog.InfoContext(ctx, "deleted category", "id", id, "entries_removed", removedEntries)
	}
	return found, nil
}

func categoryWriteError(op, description string, err error) error {
	if isDuplicateKey(err) {
		return &DuplicateError{Field: "description", Value: description}
	}
	return fmt.Errorf("%s category: %w", op, err)
}
