package models

import "time"

// Table is a physical dine-in table. SessionToken is the per-table secret
// embedded in the table's QR code URL.
type Table struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TableNumber  int       `gorm:"uniqueIndex;not null" json:"table_number"`
	SessionToken string    `gorm:"type:varchar(64);not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
