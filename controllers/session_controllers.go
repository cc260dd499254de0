package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/billing"
	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

type SessionController struct {
	Sessions *services.SessionService
}

func NewSessionController(db *gorm.DB) *SessionController {
	return &SessionController{Sessions: services.NewSessionService(db)}
}

// ScanTable -> customer scanned a table QR code. Joins the table's open
// session if one exists, otherwise opens a new one.
func (sc *SessionController) ScanTable(c *gin.Context) {
	var req struct {
		TableNumber  int    `json:"table_number" binding:"required"`
		Token        string `json:"token" binding:"required"`
		CustomerName string `json:"customer_name"`
		PartySize    int    `json:"party_size"`
		DeviceID     string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, joined, err := sc.Sessions.StartOrJoinSession(req.TableNumber, req.Token, services.StartInput{
		CustomerName: req.CustomerName,
		PartySize:    req.PartySize,
		DeviceID:     req.DeviceID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if joined {
		utils.RespondJSON(c, http.StatusOK, "Joined existing session", session)
		return
	}
	kds.BroadcastSessionUpdate(*session)
	utils.RespondJSON(c, http.StatusCreated, "Session started", session)
}

// GetSession -> session detail with its tickets, for customer polling.
// The total is always returned alongside the tickets it sums, so any
// displayed total is traceable to order subtotals.
func (sc *SessionController) GetSession(c *gin.Context) {
	session, err := sc.Sessions.GetSession(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session detail", session)
}

// SubmitOrder -> customer confirmed their cart; append a ticket.
func (sc *SessionController) SubmitOrder(c *gin.Context) {
	var req struct {
		Items []models.OrderLine `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := sc.Sessions.SubmitOrder(c.Param("session_id"), req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastNewTicket(*order)
	utils.RespondJSON(c, http.StatusCreated, "Order submitted", order)
}

// RequestBill -> customer asked to pay. Idempotent.
func (sc *SessionController) RequestBill(c *gin.Context) {
	session, err := sc.Sessions.RequestBill(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastBillRequested(*session)
	kds.BroadcastStaffNotification(fmt.Sprintf("Table %d requested the bill (%s)",
		session.TableNumber, utils.FormatCurrencyJPY(session.TotalAmount)))
	utils.RespondJSON(c, http.StatusOK, "Bill requested", session)
}

// SetSplit -> record the party's split choice and return the breakdown.
func (sc *SessionController) SetSplit(c *gin.Context) {
	var req struct {
		NumberOfSplits int `json:"number_of_splits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Sessions.SetSplit(c.Param("session_id"), req.NumberOfSplits)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	split := billing.Split(session.TotalAmount, session.NumberOfSplits)
	utils.RespondJSON(c, http.StatusOK, "Split updated", gin.H{
		"session": session,
		"split":   split,
	})
}
