package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

type DeliveryController struct {
	DB       *gorm.DB
	Delivery *services.DeliveryService
}

func NewDeliveryController(db *gorm.DB, delivery *services.DeliveryService) *DeliveryController {
	return &DeliveryController{DB: db, Delivery: delivery}
}

// CreateDeliveryOrder -> staff registers a delivery-bound order.
func (dc *DeliveryController) CreateDeliveryOrder(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name" binding:"required"`
		Address      string `json:"address" binding:"required"`
		Phone        string `json:"phone"`
		TotalAmount  int64  `json:"total_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.TotalAmount < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("total_amount must not be negative"))
		return
	}

	order := models.DeliveryOrder{
		CustomerName: req.CustomerName,
		Address:      req.Address,
		Phone:        req.Phone,
		TotalAmount:  req.TotalAmount,
		Status:       models.DeliveryConfirmed,
	}
	if err := dc.DB.Create(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	kds.BroadcastDeliveryUpdate(order)
	utils.RespondJSON(c, http.StatusCreated, "Delivery order created", order)
}

// ListDeliveryOrders -> in-flight delivery orders for the staff dashboard.
func (dc *DeliveryController) ListDeliveryOrders(c *gin.Context) {
	var orders []models.DeliveryOrder
	query := dc.DB.Order("created_at ASC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status NOT IN ?", []string{models.DeliveryDelivered, models.DeliveryCancelled})
	}
	if err := query.Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery orders", orders)
}

// AdvanceDeliveryStatus -> delivery workflow transition. GPS problems never
// block this: the tracker is started/stopped best-effort after the status
// change has already committed.
func (dc *DeliveryController) AdvanceDeliveryStatus(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	staffID := uint(0)
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			staffID = id
		}
	}

	order, err := dc.Delivery.AdvanceStatus(orderID, req.Status, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastDeliveryUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Delivery status updated", order)
}

// ReportLocation -> courier device posts its newest GPS fix. A rejected fix
// is reported back but is never fatal to the delivery workflow.
func (dc *DeliveryController) ReportLocation(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := dc.Delivery.Tracker.ReportFix(orderID, req.Latitude, req.Longitude); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Location recorded", nil)
}

// GetDeliveryLocation -> latest fix for the customer tracking page.
func (dc *DeliveryController) GetDeliveryLocation(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	location, err := dc.Delivery.LatestLocation(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery location", location)
}
