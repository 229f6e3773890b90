package models

import "time"

// Backup records a snapshot file written to the backup directory.
type Backup struct {
	ID         uint   `gorm:"primaryKey"`
	FileName   string `gorm:"size:255;uniqueIndex;not null"`
	FilePath   string `gorm:"size:1024;not null"`
	Size       int64
	Encrypted  bool
	Categories int
	Entries    int
	CreatedAt  time.Time
}
