package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a single recorded expense, tied to exactly one category.
// Amount is kept as a decimal to avoid float rounding, e.g. 25.50.
type Entry struct {
	ID         uint            `gorm:"primaryKey"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Note       string          `gorm:"size:500"`
	Timestamp  time.Time       `gorm:"index;not null"`
	CategoryID uint            `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
