package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

// SessionService gates every table-session creation and transition so the
// one-open-session-per-table invariant holds under concurrent scans. All
// mutations run inside transactions; totals are always recomputed from
// authoritative item data, never trusted from the client.
type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// StartInput carries the customer-supplied fields of a QR scan.
type StartInput struct {
	CustomerName string
	PartySize    int
	DeviceID     string
}

// StartOrJoinSession validates the table token and either joins the table's
// open session (several devices at one table share a session) or creates a
// new one. Atomicity against double-scans comes from the unique index on
// table_sessions.open_table_ref: two racing creates cannot both land, the
// loser re-reads and joins the winner's session.
func (ss *SessionService) StartOrJoinSession(tableNumber int, token string, in StartInput) (*models.TableSession, bool, error) {
	var table models.Table
	if err := ss.DB.Where("table_number = ?", tableNumber).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTableNotFound
		}
		return nil, false, err
	}

	if subtle.ConstantTimeCompare([]byte(table.SessionToken), []byte(token)) != 1 {
		return nil, false, ErrInvalidToken
	}

	// Fast path: an open session already exists, join it.
	if existing, err := ss.openSessionForTable(ss.DB, table.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, true, nil
	}

	if in.PartySize < 1 {
		in.PartySize = 1
	}

	ref := table.ID
	session := models.TableSession{
		PublicID:     uuid.NewString(),
		TableID:      table.ID,
		TableNumber:  table.TableNumber,
		CustomerName: in.CustomerName,
		PartySize:    in.PartySize,
		Status:       models.SessionActive,
		DeviceID:     in.DeviceID,
		TotalAmount:  0,
		OpenTableRef: &ref,
	}

	if err := ss.DB.Create(&session).Error; err != nil {
		// Duplicate open_table_ref: another device created the session
		// between our check and insert. Join theirs.
		existing, qerr := ss.openSessionForTable(ss.DB, table.ID)
		if qerr == nil && existing != nil {
			return existing, true, nil
		}
		return nil, false, err
	}

	utils.InfoLogger.Printf("New session %s opened on table %d (party=%d)",
		session.PublicID, table.TableNumber, session.PartySize)
	return &session, false, nil
}

// GetSession returns a session with its tickets, newest ticket last.
func (ss *SessionService) GetSession(publicID string) (*models.TableSession, error) {
	var session models.TableSession
	err := ss.DB.Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Where("public_id = ?", publicID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// RequestBill moves an open session to bill_requested. Idempotent: asking
// for the bill twice is a no-op, not an error.
func (ss *SessionService) RequestBill(publicID string) (*models.TableSession, error) {
	var session models.TableSession
	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ?", publicID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status == models.SessionBillRequested {
			return nil
		}
		res := tx.Model(&models.TableSession{}).
			Where("id = ? AND status IN ?", session.ID,
				[]string{models.SessionActive, models.SessionOrdering}).
			Update("status", models.SessionBillRequested)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// The session closed (or another device asked first) between
			// our read and write; re-read to tell the two apart.
			if err := tx.First(&session, session.ID).Error; err != nil {
				return err
			}
			if session.Status == models.SessionBillRequested {
				return nil
			}
			return ErrSessionAlreadyClosed
		}
		session.Status = models.SessionBillRequested
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkPaid records that the bill has been settled at the counter. The
// session stops counting as open, so the table immediately accepts a new
// scan; release is the bookkeeping step that stamps who cleared it.
func (ss *SessionService) MarkPaid(publicID string) (*models.TableSession, error) {
	var session models.TableSession
	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ?", publicID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status != models.SessionBillRequested {
			if session.Status == models.SessionPaid || session.Status == models.SessionReleased {
				return ErrSessionAlreadyClosed
			}
			return ErrIllegalTransition
		}
		res := tx.Model(&models.TableSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionBillRequested).
			Updates(map[string]interface{}{"status": models.SessionPaid, "open_table_ref": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionAlreadyClosed
		}
		session.Status = models.SessionPaid
		session.OpenTableRef = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ReleaseTable closes a session and frees the table. Staff only; the staff
// name is an accountability requirement and is checked before anything else
// so it fails the same way for any session state.
func (ss *SessionService) ReleaseTable(publicID, staffName string) (*models.TableSession, error) {
	if strings.TrimSpace(staffName) == "" {
		return nil, ErrMissingStaffIdentity
	}

	var session models.TableSession
	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ?", publicID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status == models.SessionReleased {
			return ErrSessionAlreadyClosed
		}
		now := time.Now()
		res := tx.Model(&models.TableSession{}).
			Where("id = ? AND status <> ?", session.ID, models.SessionReleased).
			Updates(map[string]interface{}{
				"status":         models.SessionReleased,
				"released_at":    now,
				"released_by":    staffName,
				"open_table_ref": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionAlreadyClosed
		}
		session.Status = models.SessionReleased
		session.ReleasedAt = &now
		session.ReleasedBy = staffName
		session.OpenTableRef = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Table %d released by %s (session %s)",
		session.TableNumber, staffName, session.PublicID)
	return &session, nil
}

// SetSplit records how the party wants the bill divided.
func (ss *SessionService) SetSplit(publicID string, splits int) (*models.TableSession, error) {
	if splits < 1 {
		splits = 1
	}
	var session models.TableSession
	if err := ss.DB.Where("public_id = ?", publicID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !session.IsOpen() {
		return nil, ErrSessionAlreadyClosed
	}
	session.SplitBill = splits > 1
	session.NumberOfSplits = splits
	if err := ss.DB.Model(&session).Select("split_bill", "number_of_splits").
		Updates(map[string]interface{}{"split_bill": session.SplitBill, "number_of_splits": splits}).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitOrder appends a ticket to an open session. The subtotal is computed
// here from the submitted lines with integer arithmetic; the session total
// is advanced with a targeted increment so a concurrent staff status change
// cannot be clobbered.
func (ss *SessionService) SubmitOrder(publicID string, lines []models.OrderLine) (*models.SessionOrder, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	var subtotal int64
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOrderLine, err)
		}
		subtotal += line.LineTotal()
	}

	var order models.SessionOrder
	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		var session models.TableSession
		if err := tx.Where("public_id = ?", publicID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if !session.AcceptsOrders() {
			return ErrSessionClosedForOrders
		}

		order = models.SessionOrder{
			SessionID: session.ID,
			Items:     lines,
			Subtotal:  subtotal,
			Status:    models.OrderPending,
			Printed:   false,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"total_amount": gorm.Expr("total_amount + ?", subtotal),
		}
		if session.Status == models.SessionActive {
			updates["status"] = models.SessionOrdering
		}
		return tx.Model(&models.TableSession{}).Where("id = ?", session.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Ticket #%d submitted to session %s (subtotal=%d)",
		order.ID, publicID, subtotal)
	return &order, nil
}

// openSessionForTable finds the one open session for a table, or nil.
func (ss *SessionService) openSessionForTable(db *gorm.DB, tableID uint) (*models.TableSession, error) {
	var session models.TableSession
	err := db.Where("table_id = ? AND status IN ?", tableID, models.OpenSessionStatuses).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
