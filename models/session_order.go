package models

import (
	"fmt"
	"time"
)

// Ticket statuses. Forward-only: pending -> confirmed -> preparing -> served.
// cancelled is reachable from pending/confirmed only.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderServed    = "served"
	OrderCancelled = "cancelled"
)

// OrderAddOn is one priced extra on a line item (e.g. extra cheese).
type OrderAddOn struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// OrderLine is one line item inside a ticket. All prices are integer yen.
type OrderLine struct {
	MenuItemID uint         `json:"menu_item_id"`
	Name       string       `json:"name"`
	UnitPrice  int64        `json:"unit_price"`
	Quantity   int          `json:"quantity"`
	SpiceLevel string       `json:"spice_level,omitempty"`
	AddOns     []OrderAddOn `json:"add_ons,omitempty"`
	Variation  string       `json:"variation,omitempty"`
}

// LineTotal is the price of this line: (unit + add-ons) * quantity.
func (l OrderLine) LineTotal() int64 {
	per := l.UnitPrice
	for _, a := range l.AddOns {
		per += a.Price
	}
	return per * int64(l.Quantity)
}

// Validate rejects malformed lines before they reach the kitchen.
func (l OrderLine) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("line item name is required")
	}
	if l.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1 for %q", l.Name)
	}
	if l.UnitPrice < 0 {
		return fmt.Errorf("negative unit price for %q", l.Name)
	}
	for _, a := range l.AddOns {
		if a.Price < 0 {
			return fmt.Errorf("negative add-on price for %q", l.Name)
		}
	}
	return nil
}

// SessionOrder is one ticket submitted within a session (the initial order
// or any later add-on batch). Tickets are never deleted; cancellation is a
// status transition.
type SessionOrder struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	SessionID uint         `gorm:"not null;index" json:"session_id"`
	Session   TableSession `gorm:"foreignKey:SessionID" json:"-"`
	Items     []OrderLine  `gorm:"serializer:json;type:text" json:"items"`
	Subtotal  int64        `gorm:"not null" json:"subtotal"`
	Status    string       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Printed   bool         `gorm:"not null;default:false" json:"printed"`
	PrintedAt *time.Time   `json:"printed_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

// legalOrderTransitions maps a ticket status to the statuses it may move to.
var legalOrderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderServed},
	OrderServed:    {},
	OrderCancelled: {},
}

// CanTransitionOrder reports whether from -> to is a legal ticket transition.
func CanTransitionOrder(from, to string) bool {
	for _, next := range legalOrderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
