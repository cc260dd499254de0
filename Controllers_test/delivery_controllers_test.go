package Controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/controllers"
	"github.com/hikarusato/tablelink/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDeliveryRouter(db *gorm.DB) (*gin.Engine, *services.DeliveryTracker) {
	tracker := services.NewDeliveryTracker(db)
	tracker.Interval = 25 * time.Millisecond
	ctrl := controllers.NewDeliveryController(db, services.NewDeliveryService(db, tracker))

	r := gin.Default()
	r.POST("/staff/delivery", ctrl.CreateDeliveryOrder)
	r.GET("/staff/delivery", ctrl.ListDeliveryOrders)
	r.PATCH("/staff/delivery/:order_id/status", ctrl.AdvanceDeliveryStatus)
	r.POST("/staff/delivery/:order_id/location", ctrl.ReportLocation)
	r.GET("/delivery/:order_id/location", ctrl.GetDeliveryLocation)
	return r, tracker
}

func createDelivery(t *testing.T, r *gin.Engine) uint {
	t.Helper()
	w, resp := doJSON(t, r, "POST", "/staff/delivery", gin.H{
		"customer_name": "Suzuki",
		"address":       "2-11-3 Meguro",
		"phone":         "03-1234-5678",
		"total_amount":  3200,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := dataField(t, resp, "id").(float64)
	require.NotZero(t, id)
	return uint(id)
}

func TestDeliveryLifecycleOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	r, tracker := setupDeliveryRouter(db)
	defer tracker.StopAll()

	orderID := createDelivery(t, r)
	statusPath := fmt.Sprintf("/staff/delivery/%d/status", orderID)

	// Cannot jump straight onto the road.
	w, _ := doJSON(t, r, "PATCH", statusPath, gin.H{"status": "out_for_delivery"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp := doJSON(t, r, "PATCH", statusPath, gin.H{"status": "preparing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preparing", dataField(t, resp, "status"))

	w, resp = doJSON(t, r, "PATCH", statusPath, gin.H{"status": "out_for_delivery"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "out_for_delivery", dataField(t, resp, "status"))
	assert.True(t, tracker.Tracking(orderID))

	w, _ = doJSON(t, r, "PATCH", statusPath, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, tracker.Tracking(orderID))
}

func TestReportAndFetchLocationOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	r, tracker := setupDeliveryRouter(db)
	defer tracker.StopAll()

	orderID := createDelivery(t, r)
	statusPath := fmt.Sprintf("/staff/delivery/%d/status", orderID)
	locPath := fmt.Sprintf("/staff/delivery/%d/location", orderID)
	publicPath := fmt.Sprintf("/delivery/%d/location", orderID)

	// Customer asks before the courier left: nothing to show yet.
	w, _ := doJSON(t, r, "GET", publicPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A fix for an order that is not out for delivery is rejected.
	w, _ = doJSON(t, r, "POST", locPath, gin.H{"latitude": 35.63, "longitude": 139.71})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	doJSON(t, r, "PATCH", statusPath, gin.H{"status": "preparing"})
	w, _ = doJSON(t, r, "PATCH", statusPath, gin.H{"status": "out_for_delivery"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, "POST", locPath, gin.H{"latitude": 35.63, "longitude": 139.71})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, r, "GET", publicPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 35.63, dataField(t, resp, "latitude"), 1e-9)
	assert.InDelta(t, 139.71, dataField(t, resp, "longitude"), 1e-9)

	// Out-of-range coordinates never make it into the feed.
	w, _ = doJSON(t, r, "POST", locPath, gin.H{"latitude": 135.0, "longitude": 139.71})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDeliveryOrdersFiltersFinished(t *testing.T) {
	db := setupTestDB(t)
	r, tracker := setupDeliveryRouter(db)
	defer tracker.StopAll()

	first := createDelivery(t, r)
	second := createDelivery(t, r)

	path := fmt.Sprintf("/staff/delivery/%d/status", first)
	doJSON(t, r, "PATCH", path, gin.H{"status": "cancelled"})

	w, resp := doJSON(t, r, "GET", "/staff/delivery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders, ok := resp["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, orders, 1)
	got := orders[0].(map[string]interface{})
	assert.Equal(t, float64(second), got["id"])

	w, resp = doJSON(t, r, "GET", "/staff/delivery?status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders, _ = resp["data"].([]interface{})
	require.Len(t, orders, 1)
}
