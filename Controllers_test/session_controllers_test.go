package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/controllers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSessionRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()
	sessionCtrl := controllers.NewSessionController(db)
	r.POST("/sessions/scan", sessionCtrl.ScanTable)
	r.GET("/sessions/:session_id", sessionCtrl.GetSession)
	r.POST("/sessions/:session_id/orders", sessionCtrl.SubmitOrder)
	r.POST("/sessions/:session_id/bill", sessionCtrl.RequestBill)
	r.POST("/sessions/:session_id/split", sessionCtrl.SetSplit)
	return r
}

func TestScanTableFlow(t *testing.T) {
	db := setupTestDB(t)
	seedTable(t, db, 5, "qr-secret")
	r := setupSessionRouter(db)

	// Wrong token is rejected outright.
	w, _ := doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number": 5,
		"token":        "guessed",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// First scan opens a session.
	w, resp := doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number":  5,
		"token":         "qr-secret",
		"customer_name": "Tanaka",
		"party_size":    2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID, _ := dataField(t, resp, "public_id").(string)
	require.NotEmpty(t, sessionID)

	// Second device at the same table joins the same session.
	w, resp = doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number": 5,
		"token":        "qr-secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sessionID, dataField(t, resp, "public_id"))
}

func TestSubmitOrderOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	seedTable(t, db, 1, "qr-secret")
	r := setupSessionRouter(db)

	_, resp := doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number": 1, "token": "qr-secret",
	})
	sessionID, _ := dataField(t, resp, "public_id").(string)

	// Empty cart is a validation error.
	w, _ := doJSON(t, r, "POST", "/sessions/"+sessionID+"/orders", gin.H{
		"items": []gin.H{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = doJSON(t, r, "POST", "/sessions/"+sessionID+"/orders", gin.H{
		"items": []gin.H{
			{"menu_item_id": 3, "name": "Tonkotsu Ramen", "unit_price": 950, "quantity": 2},
			{"menu_item_id": 8, "name": "Gyoza", "unit_price": 450, "quantity": 1,
				"add_ons": []gin.H{{"name": "Extra Sauce", "price": 50}}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(2400), dataField(t, resp, "subtotal"))

	// The session total mirrors the ticket subtotals.
	w, resp = doJSON(t, r, "GET", "/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2400), dataField(t, resp, "total_amount"))
	assert.Equal(t, "ordering", dataField(t, resp, "status"))
}

func TestBillRequestClosesOrdering(t *testing.T) {
	db := setupTestDB(t)
	seedTable(t, db, 2, "qr-secret")
	r := setupSessionRouter(db)

	_, resp := doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number": 2, "token": "qr-secret",
	})
	sessionID, _ := dataField(t, resp, "public_id").(string)

	w, _ := doJSON(t, r, "POST", "/sessions/"+sessionID+"/orders", gin.H{
		"items": []gin.H{{"menu_item_id": 1, "name": "Katsu Curry", "unit_price": 1100, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = doJSON(t, r, "POST", "/sessions/"+sessionID+"/bill", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Asking twice is fine.
	w, _ = doJSON(t, r, "POST", "/sessions/"+sessionID+"/bill", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// But the cart is closed now.
	w, _ = doJSON(t, r, "POST", "/sessions/"+sessionID+"/orders", gin.H{
		"items": []gin.H{{"menu_item_id": 1, "name": "Katsu Curry", "unit_price": 1100, "quantity": 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	_, resp = doJSON(t, r, "GET", "/sessions/"+sessionID, nil)
	assert.Equal(t, float64(1100), dataField(t, resp, "total_amount"))
}

func TestSplitEndpointReturnsBreakdown(t *testing.T) {
	db := setupTestDB(t)
	seedTable(t, db, 3, "qr-secret")
	r := setupSessionRouter(db)

	_, resp := doJSON(t, r, "POST", "/sessions/scan", gin.H{
		"table_number": 3, "token": "qr-secret",
	})
	sessionID, _ := dataField(t, resp, "public_id").(string)

	w, _ := doJSON(t, r, "POST", "/sessions/"+sessionID+"/orders", gin.H{
		"items": []gin.H{{"menu_item_id": 2, "name": "Sashimi Moriawase", "unit_price": 1000, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = doJSON(t, r, "POST", "/sessions/"+sessionID+"/split", gin.H{
		"number_of_splits": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	split, ok := dataField(t, resp, "split").(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(333), split["per_person"])
	assert.Equal(t, float64(334), split["first_person_pays"])
	assert.Equal(t, float64(1), split["remainder"])
}

func TestGetSessionNotFound(t *testing.T) {
	db := setupTestDB(t)
	r := setupSessionRouter(db)

	w, _ := doJSON(t, r, "GET", "/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
