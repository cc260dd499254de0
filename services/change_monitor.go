package services

import (
	"time"

	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

// ChangeMonitor polls the trigger-written db_changes feed and fans changes
// out to the websocket hub. With the 500ms interval set in main, every
// connected board observes a row change well inside the 2s staleness bound.
type ChangeMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
}

func NewChangeMonitor(db *gorm.DB) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 1 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	close(cm.StopChan)
}

func (cm *ChangeMonitor) checkChanges() {
	var changes []models.DBChange

	// Claim and mark inside one transaction so two monitor ticks cannot
	// double-broadcast the same change.
	tx := cm.DB.Begin()

	if err := tx.Where("processed = ?", false).
		Order("changed_at ASC").
		Limit(100).
		Find(&changes).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Error fetching changes: %v", err)
		return
	}

	for _, change := range changes {
		if err := tx.Model(&models.DBChange{}).
			Where("id = ?", change.ID).
			Update("processed", true).Error; err != nil {
			tx.Rollback()
			utils.ErrorLogger.Printf("Error marking change as processed: %v", err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Error committing change batch: %v", err)
		return
	}

	for _, change := range changes {
		switch change.TableName {
		case "table_sessions":
			cm.processSessionChange(change)
		case "session_orders":
			cm.processOrderChange(change)
		case "delivery_orders":
			cm.processDeliveryChange(change)
		case "delivery_locations":
			cm.processLocationChange(change)
		}
	}
}

func (cm *ChangeMonitor) processSessionChange(change models.DBChange) {
	var session models.TableSession
	if err := cm.DB.First(&session, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching session %d: %v", change.RecordID, err)
		return
	}

	switch session.Status {
	case models.SessionBillRequested:
		kds.BroadcastBillRequested(session)
	case models.SessionReleased:
		kds.BroadcastTableReleased(session)
	default:
		kds.BroadcastSessionUpdate(session)
	}
}

func (cm *ChangeMonitor) processOrderChange(change models.DBChange) {
	var order models.SessionOrder
	if err := cm.DB.First(&order, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching ticket %d: %v", change.RecordID, err)
		return
	}

	if change.ActionType == "INSERT" {
		kds.BroadcastNewTicket(order)
		return
	}
	kds.BroadcastTicketUpdate(order)
}

func (cm *ChangeMonitor) processDeliveryChange(change models.DBChange) {
	var order models.DeliveryOrder
	if err := cm.DB.First(&order, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching delivery order %d: %v", change.RecordID, err)
		return
	}
	kds.BroadcastDeliveryUpdate(order)
}

func (cm *ChangeMonitor) processLocationChange(change models.DBChange) {
	var location models.DeliveryLocation
	if err := cm.DB.First(&location, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching location %d: %v", change.RecordID, err)
		return
	}
	kds.BroadcastDeliveryLocation(location)
}
