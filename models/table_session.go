package models

import "time"

// Session statuses. A session counts as "open" while it is in
// active/ordering/bill_requested; at most one open session may exist
// per table at any time.
const (
	SessionActive        = "active"
	SessionOrdering      = "ordering"
	SessionBillRequested = "bill_requested"
	SessionPaid          = "paid"
	SessionReleased      = "released"
)

// OpenSessionStatuses are the statuses that block a new session on the
// same table.
var OpenSessionStatuses = []string{SessionActive, SessionOrdering, SessionBillRequested}

// TableSession is one continuous dining engagement at a table, from QR
// scan to staff release.
type TableSession struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	PublicID     string `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	TableID      uint   `gorm:"not null;index" json:"table_id"`
	Table        Table  `gorm:"foreignKey:TableID" json:"-"`
	TableNumber  int    `gorm:"not null;index" json:"table_number"`
	CustomerName string `gorm:"type:varchar(100)" json:"customer_name"`
	PartySize    int    `gorm:"not null;default:1" json:"party_size"`
	Status       string `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	// OpenTableRef mirrors TableID while the session is open and is
	// NULLed on paid/released. The unique index on it is what makes
	// "one open session per table" hold under concurrent scans.
	OpenTableRef   *uint      `gorm:"uniqueIndex" json:"-"`
	DeviceID       string     `gorm:"type:varchar(100)" json:"device_id"`
	TotalAmount    int64      `gorm:"not null;default:0" json:"total_amount"`
	SplitBill      bool       `gorm:"not null;default:false" json:"split_bill"`
	NumberOfSplits int        `gorm:"not null;default:1" json:"number_of_splits"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
	ReleasedBy     string     `gorm:"type:varchar(100)" json:"released_by,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`

	Orders []SessionOrder `gorm:"foreignKey:SessionID" json:"orders,omitempty"`
}

// IsOpen reports whether the session still accepts staff/customer activity.
func (s *TableSession) IsOpen() bool {
	return s.Status == SessionActive || s.Status == SessionOrdering || s.Status == SessionBillRequested
}

// AcceptsOrders reports whether new tickets may still be submitted.
// Once the bill has been requested the cart is closed.
func (s *TableSession) AcceptsOrders() bool {
	return s.Status == SessionActive || s.Status == SessionOrdering
}
