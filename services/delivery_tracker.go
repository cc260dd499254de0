package services

import (
	"context"
	"sync"
	"time"

	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPushInterval bounds the write volume of the GPS relay: no matter
// how often a courier's device reports, at most one row write per order per
// interval (plus the immediate first push).
const DefaultPushInterval = 60 * time.Second

// DeliveryTracker runs one observation/push loop per order in transit.
// Loops are individually cancellable: marking one order delivered never
// disturbs a sibling loop, and StopAll tears everything down on shutdown.
type DeliveryTracker struct {
	DB       *gorm.DB
	Interval time.Duration

	mu    sync.Mutex
	loops map[uint]*trackerLoop
}

type trackerLoop struct {
	orderID uint
	staffID uint
	cancel  context.CancelFunc

	mu         sync.Mutex
	latest     *gpsFix
	pushedOnce bool
}

type gpsFix struct {
	lat, lon float64
	at       time.Time
}

func NewDeliveryTracker(db *gorm.DB) *DeliveryTracker {
	return &DeliveryTracker{
		DB:       db,
		Interval: DefaultPushInterval,
		loops:    make(map[uint]*trackerLoop),
	}
}

// StartTracking begins the push loop for an order. Idempotent: starting an
// order that is already tracked is a no-op.
func (dt *DeliveryTracker) StartTracking(orderID, staffID uint) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	if _, running := dt.loops[orderID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &trackerLoop{orderID: orderID, staffID: staffID, cancel: cancel}
	dt.loops[orderID] = loop

	go dt.run(ctx, loop)
	utils.InfoLogger.Printf("Delivery tracking started for order #%d (staff=%d)", orderID, staffID)
}

// StopTracking cancels one order's loop. The last persisted fix is kept.
func (dt *DeliveryTracker) StopTracking(orderID uint) {
	dt.mu.Lock()
	loop, ok := dt.loops[orderID]
	if ok {
		delete(dt.loops, orderID)
	}
	dt.mu.Unlock()
	if ok {
		loop.cancel()
		utils.InfoLogger.Printf("Delivery tracking stopped for order #%d", orderID)
	}
}

// StopForStaff tears down every loop owned by one courier, used on staff
// logout so no background work leaks past their shift.
func (dt *DeliveryTracker) StopForStaff(staffID uint) {
	dt.mu.Lock()
	var stopped []*trackerLoop
	for id, loop := range dt.loops {
		if loop.staffID == staffID {
			stopped = append(stopped, loop)
			delete(dt.loops, id)
		}
	}
	dt.mu.Unlock()
	for _, loop := range stopped {
		loop.cancel()
	}
}

// StopAll tears every loop down (server shutdown).
func (dt *DeliveryTracker) StopAll() {
	dt.mu.Lock()
	loops := dt.loops
	dt.loops = make(map[uint]*trackerLoop)
	dt.mu.Unlock()
	for _, loop := range loops {
		loop.cancel()
	}
}

// Tracking reports whether an order currently has a live loop.
func (dt *DeliveryTracker) Tracking(orderID uint) bool {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	_, ok := dt.loops[orderID]
	return ok
}

// ReportFix records the courier device's newest position. Only the most
// recent fix is kept in memory; the loop decides when it hits the store.
// The very first fix after tracking starts is pushed immediately.
func (dt *DeliveryTracker) ReportFix(orderID uint, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrLocationUnavailable
	}

	dt.mu.Lock()
	loop, ok := dt.loops[orderID]
	dt.mu.Unlock()
	if !ok {
		// Order not in transit; the fix has nowhere to go but the
		// delivery workflow must not care.
		return ErrLocationUnavailable
	}

	loop.mu.Lock()
	loop.latest = &gpsFix{lat: lat, lon: lon, at: time.Now()}
	first := !loop.pushedOnce
	if first {
		loop.pushedOnce = true
	}
	loop.mu.Unlock()

	if first {
		dt.push(loop)
	}
	return nil
}

func (dt *DeliveryTracker) run(ctx context.Context, loop *trackerLoop) {
	ticker := time.NewTicker(dt.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dt.push(loop)
		case <-ctx.Done():
			return
		}
	}
}

// push upserts the loop's latest fix; one row per order, superseded fixes
// overwritten. A failed push is logged and retried on the next tick.
func (dt *DeliveryTracker) push(loop *trackerLoop) {
	loop.mu.Lock()
	fix := loop.latest
	loop.mu.Unlock()
	if fix == nil {
		return
	}

	location := models.DeliveryLocation{
		OrderID:   loop.orderID,
		StaffID:   loop.staffID,
		Latitude:  fix.lat,
		Longitude: fix.lon,
		UpdatedAt: fix.at,
	}
	err := dt.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"staff_id", "latitude", "longitude", "updated_at"}),
	}).Create(&location).Error
	if err != nil {
		utils.ErrorLogger.Printf("Failed to push location for order #%d: %v", loop.orderID, err)
	}
}
