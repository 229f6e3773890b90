package models

import "time"

// Category is a user-defined label classifying expenses.
// Deleting a category deletes every entry that references it.
type Category struct {
	ID          uint    `gorm:"primaryKey"`
	Description string  `gorm:"size:50;uniqueIndex;not null"`
	Entries     []Entry `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
