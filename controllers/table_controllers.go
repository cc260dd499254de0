package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

// CreateTable -> provision a new table with a fresh QR token.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber int `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	token, err := utils.NewTableToken()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	table := models.Table{
		TableNumber:  req.TableNumber,
		SessionToken: token,
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New table %d provisioned", table.TableNumber)
	// Token returned once at creation so staff can print the QR code.
	utils.RespondJSON(c, http.StatusCreated, "Table created", gin.H{
		"table": table,
		"token": token,
	})
}

// GetAllTables -> list every table.
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Order("table_number ASC").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// RotateToken -> replace a leaked QR token. The old QR code stops working
// immediately; open sessions on the table are unaffected.
func (tc *TableController) RotateToken(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	token, err := utils.NewTableToken()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := tc.DB.Model(&table).Update("session_token", token).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("QR token rotated for table %d", table.TableNumber)
	utils.RespondJSON(c, http.StatusOK, "Token rotated", gin.H{
		"table_id": table.ID,
		"token":    token,
	})
}
