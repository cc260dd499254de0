package models

import "time"

// Delivery order statuses.
const (
	DeliveryConfirmed = "confirmed"
	DeliveryPreparing = "preparing"
	DeliveryOutForDel = "out_for_delivery"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

// DeliveryOrder is a delivery-bound order. Only the fields the delivery
// workflow and the GPS relay need; menu/cart handling lives elsewhere.
type DeliveryOrder struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerName string    `gorm:"type:varchar(100);not null" json:"customer_name"`
	Address      string    `gorm:"type:text;not null" json:"address"`
	Phone        string    `gorm:"type:varchar(30)" json:"phone"`
	TotalAmount  int64     `gorm:"not null;default:0" json:"total_amount"`
	Status       string    `gorm:"type:varchar(20);not null;default:'confirmed';index" json:"status"`
	StaffID      *uint     `gorm:"index" json:"staff_id,omitempty"`
	Staff        *User     `gorm:"foreignKey:StaffID" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

var legalDeliveryTransitions = map[string][]string{
	DeliveryConfirmed: {DeliveryPreparing, DeliveryCancelled},
	DeliveryPreparing: {DeliveryOutForDel, DeliveryCancelled},
	DeliveryOutForDel: {DeliveryDelivered},
	DeliveryDelivered: {},
	DeliveryCancelled: {},
}

// CanTransitionDelivery reports whether from -> to is a legal delivery transition.
func CanTransitionDelivery(from, to string) bool {
	for _, next := range legalDeliveryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
