package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

type BoardController struct {
	Board    *services.BoardService
	Sessions *services.SessionService
}

func NewBoardController(db *gorm.DB) *BoardController {
	return &BoardController{
		Board:    services.NewBoardService(db),
		Sessions: services.NewSessionService(db),
	}
}

// GetBoard -> one tile per table for the kitchen/counter view.
func (bc *BoardController) GetBoard(c *gin.Context) {
	tiles, err := bc.Board.Board()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table board", tiles)
}

// MarkPrinted -> staff sent the ticket to the printer. Safe to repeat.
func (bc *BoardController) MarkPrinted(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := bc.Board.MarkPrinted(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTicketPrinted(*order)
	utils.RespondJSON(c, http.StatusOK, "Ticket printed", order)
}

// Reprint -> explicit staff reprint of an already-printed ticket.
func (bc *BoardController) Reprint(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := bc.Board.Reprint(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTicketPrinted(*order)
	utils.RespondJSON(c, http.StatusOK, "Ticket reprinted", order)
}

// AdvanceOrderStatus -> kitchen moves a ticket forward.
func (bc *BoardController) AdvanceOrderStatus(c *gin.Context) {
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

	order, err := bc.Board.AdvanceOrderStatus(orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTicketUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Ticket status updated", order)
}

// MarkPaid -> counter staff settled the bill.
func (bc *BoardController) MarkPaid(c *gin.Context) {
	session, err := bc.Sessions.MarkPaid(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastSessionUpdate(*session)
	utils.RespondJSON(c, http.StatusOK, "Session marked paid", session)
}

// ReleaseTable -> staff frees the table for the next party. The staff name
// is taken from the request and falls back to the authenticated user.
func (bc *BoardController) ReleaseTable(c *gin.Context) {
	var req struct {
		StaffName string `json:"staff_name"`
	}
	// Body is optional; an empty one means "use my login identity".
	_ = c.ShouldBindJSON(&req)
	if req.StaffName == "" {
		if v, exists := c.Get("user_id"); exists {
			var user models.User
			if err := bc.Sessions.DB.First(&user, v).Error; err == nil {
				req.StaffName = user.Name
			}
		}
	}

	session, err := bc.Sessions.ReleaseTable(c.Param("session_id"), req.StaffName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTableReleased(*session)
	kds.BroadcastStaffNotification(fmt.Sprintf("Table %d released by %s",
		session.TableNumber, session.ReleasedBy))
	utils.RespondJSON(c, http.StatusOK, "Table released", session)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}
