package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// KDSHandler -> websocket endpoint for staff boards. One hub for all
// roles; clients filter events themselves and drop frames whose seq is
// older than what they already applied.
func KDSHandler(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role := roleInterface.(string)

	if role != models.RoleKitchen && role != models.RoleStaff && role != models.RoleAdmin {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kds.RegisterClient(ws, role)

	// Fresh board snapshot on connect, so a reconnecting client never
	// renders stale tiles while waiting for the next change event.
	if db := utils.GetDB(); db != nil {
		if tiles, err := services.NewBoardService(db).Board(); err == nil {
			if err := kds.SendTo(ws, kds.Message{Event: kds.EventBoardSnapshot, Data: tiles}); err != nil {
				kds.UnregisterClient(ws)
				return
			}
		}
	}

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kds.UnregisterClient(ws)
}
