package services

import (
	"errors"
	"time"

	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

// Tile statuses shown on the kitchen/counter board.
const (
	TileAvailable     = "available"
	TileNewOrder      = "new_order"
	TilePreparing     = "preparing"
	TileAddOn         = "add_on"
	TileBillRequested = "bill_requested"
	TileServed        = "served"
)

// TableTile is the derived per-table state for the staff board. It is
// computed from persisted rows on every read, never stored.
type TableTile struct {
	TableNumber     int                   `json:"table_number"`
	Status          string                `json:"status"`
	Session         *models.TableSession  `json:"session,omitempty"`
	UnprintedOrders []models.SessionOrder `json:"unprinted_orders,omitempty"`
	HasUnprinted    bool                  `json:"has_unprinted"`
}

// BoardService derives actionable per-table tiles and mediates staff
// actions on tickets (print, reprint, status transitions).
type BoardService struct {
	DB *gorm.DB
}

func NewBoardService(db *gorm.DB) *BoardService {
	return &BoardService{DB: db}
}

// ClassifyTile computes the tile status for one session and its tickets.
// Priority-ordered, first match wins; deterministic by construction.
func ClassifyTile(session *models.TableSession, orders []models.SessionOrder) string {
	if session == nil || !session.IsOpen() {
		return TileAvailable
	}

	var firstPrint *time.Time
	for i := range orders {
		if orders[i].Printed && orders[i].PrintedAt != nil {
			if firstPrint == nil || orders[i].PrintedAt.Before(*firstPrint) {
				firstPrint = orders[i].PrintedAt
			}
		}
	}

	for i := range orders {
		if !orders[i].Printed && orders[i].Status == models.OrderPending {
			return TileNewOrder
		}
	}
	for i := range orders {
		if orders[i].Status == models.OrderPreparing {
			return TilePreparing
		}
	}
	if firstPrint != nil {
		for i := range orders {
			if !orders[i].Printed && orders[i].Status != models.OrderCancelled &&
				orders[i].CreatedAt.After(*firstPrint) {
				return TileAddOn
			}
		}
	}
	if session.Status == models.SessionBillRequested {
		return TileBillRequested
	}
	return TileServed
}

// Board returns one tile per physical table, available tables included.
func (bs *BoardService) Board() ([]TableTile, error) {
	var tables []models.Table
	if err := bs.DB.Order("table_number ASC").Find(&tables).Error; err != nil {
		return nil, err
	}

	var sessions []models.TableSession
	if err := bs.DB.Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Where("status IN ?", models.OpenSessionStatuses).Find(&sessions).Error; err != nil {
		return nil, err
	}

	byTable := make(map[uint]*models.TableSession, len(sessions))
	for i := range sessions {
		byTable[sessions[i].TableID] = &sessions[i]
	}

	tiles := make([]TableTile, 0, len(tables))
	for _, table := range tables {
		tile := TableTile{TableNumber: table.TableNumber, Status: TileAvailable}
		if session, ok := byTable[table.ID]; ok {
			tile.Session = session
			tile.Status = ClassifyTile(session, session.Orders)
			for _, order := range session.Orders {
				if !order.Printed && order.Status != models.OrderCancelled {
					tile.UnprintedOrders = append(tile.UnprintedOrders, order)
				}
			}
			tile.HasUnprinted = len(tile.UnprintedOrders) > 0
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}

// MarkPrinted flips the one-way printed flag. The compare-and-set in the
// WHERE clause makes two racing staff clients harmless: the second update
// matches zero rows and the call is a no-op, never an error.
func (bs *BoardService) MarkPrinted(orderID uint) (*models.SessionOrder, error) {
	now := time.Now()
	res := bs.DB.Model(&models.SessionOrder{}).
		Where("id = ? AND printed = ?", orderID, false).
		Updates(map[string]interface{}{"printed": true, "printed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}

	var order models.SessionOrder
	if err := bs.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if res.RowsAffected > 0 {
		utils.InfoLogger.Printf("Ticket #%d printed", orderID)
	}
	return &order, nil
}

// Reprint re-emits an already-printed ticket without touching the flag.
// Explicit staff action only; printing never repeats automatically.
func (bs *BoardService) Reprint(orderID uint) (*models.SessionOrder, error) {
	var order models.SessionOrder
	if err := bs.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.Printed {
		return nil, ErrIllegalTransition
	}
	utils.InfoLogger.Printf("Ticket #%d reprinted", orderID)
	return &order, nil
}

// AdvanceOrderStatus applies a forward ticket transition. The from-status
// sits in the UPDATE's WHERE clause, so two racing staff clients cannot
// both land the same transition: the loser matches zero rows and gets
// ErrIllegalTransition. Cancelling a ticket subtracts its subtotal from
// the session total, and only when the compare-and-set landed, so the
// total stays the sum of non-cancelled tickets.
func (bs *BoardService) AdvanceOrderStatus(orderID uint, newStatus string) (*models.SessionOrder, error) {
	var order models.SessionOrder
	err := bs.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !models.CanTransitionOrder(order.Status, newStatus) {
			return ErrIllegalTransition
		}
		res := tx.Model(&models.SessionOrder{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone advanced the ticket between our read and write.
			return ErrIllegalTransition
		}
		order.Status = newStatus
		if newStatus == models.OrderCancelled {
			return tx.Model(&models.TableSession{}).Where("id = ?", order.SessionID).
				Update("total_amount", gorm.Expr("total_amount - ?", order.Subtotal)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
