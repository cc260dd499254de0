package services

import (
	"errors"

	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

// DeliveryService drives the delivery order state machine and couples it to
// the GPS tracker. Status transitions always succeed independent of GPS
// availability; the tracker is strictly best-effort.
type DeliveryService struct {
	DB      *gorm.DB
	Tracker *DeliveryTracker
}

func NewDeliveryService(db *gorm.DB, tracker *DeliveryTracker) *DeliveryService {
	return &DeliveryService{DB: db, Tracker: tracker}
}

// AdvanceStatus applies a delivery transition. out_for_delivery starts the
// order's tracking loop, delivered (or cancelled) stops it.
func (ds *DeliveryService) AdvanceStatus(orderID uint, newStatus string, staffID uint) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !models.CanTransitionDelivery(order.Status, newStatus) {
			return ErrIllegalTransition
		}
		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.DeliveryOutForDel && order.StaffID == nil {
			updates["staff_id"] = staffID
			order.StaffID = &staffID
		}
		order.Status = newStatus
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case models.DeliveryOutForDel:
		assigned := staffID
		if order.StaffID != nil {
			assigned = *order.StaffID
		}
		ds.Tracker.StartTracking(order.ID, assigned)
	case models.DeliveryDelivered, models.DeliveryCancelled:
		ds.Tracker.StopTracking(order.ID)
	}

	utils.InfoLogger.Printf("Delivery order #%d -> %s", order.ID, newStatus)
	return &order, nil
}

// LatestLocation returns the last persisted fix for an order. Kept after
// delivery so the tracking page can show where the order ended up.
func (ds *DeliveryService) LatestLocation(orderID uint) (*models.DeliveryLocation, error) {
	var location models.DeliveryLocation
	if err := ds.DB.Where("order_id = ?", orderID).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &location, nil
}
