package models

import "time"

// DeliveryLocation is the most recent GPS fix for an in-transit delivery
// order. One row per order (upsert); superseded fixes are overwritten, and
// the last fix is kept after delivery.
type DeliveryLocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	StaffID   uint      `gorm:"not null" json:"staff_id"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
