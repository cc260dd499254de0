package router

import (
	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/controllers"
	"github.com/hikarusato/tablelink/kds"
	"github.com/hikarusato/tablelink/middlewares"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/services"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, tracker *services.DeliveryTracker) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	// Registered before any route so every handler chain picks it up.
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	deliveryService := services.NewDeliveryService(db, tracker)

	userCtrl := controllers.NewUserController(db, tracker)
	tableCtrl := controllers.NewTableController(db)
	sessionCtrl := controllers.NewSessionController(db)
	boardCtrl := controllers.NewBoardController(db)
	deliveryCtrl := controllers.NewDeliveryController(db, deliveryService)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong", "board_clients": kds.ClientCount()})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Customer routes: no login, gated by the table QR token instead.
	r.POST("/sessions/scan", sessionCtrl.ScanTable)
	r.GET("/sessions/:session_id", sessionCtrl.GetSession)
	r.POST("/sessions/:session_id/orders", sessionCtrl.SubmitOrder)
	r.POST("/sessions/:session_id/bill", sessionCtrl.RequestBill)
	r.POST("/sessions/:session_id/split", sessionCtrl.SetSplit)

	// Customer delivery tracking.
	r.GET("/delivery/:order_id/location", deliveryCtrl.GetDeliveryLocation)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := r.Group("/staff")
	staff.Use(middlewares.AuthMiddleware())

	staff.GET("/profile", userCtrl.GetProfile)
	staff.POST("/logout", userCtrl.Logout)

	// TABLES (admin)
	admin := staff.Group("/")
	admin.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		admin.POST("/tables", tableCtrl.CreateTable)
		admin.POST("/tables/:table_id/rotate-token", tableCtrl.RotateToken)
	}
	staff.GET("/tables", tableCtrl.GetAllTables)

	// BOARD (kitchen + counter staff)
	staff.GET("/board", boardCtrl.GetBoard)
	staff.POST("/orders/:order_id/print", boardCtrl.MarkPrinted)
	staff.POST("/orders/:order_id/reprint", boardCtrl.Reprint)
	staff.PATCH("/orders/:order_id/status", boardCtrl.AdvanceOrderStatus)

	// SESSION CLOSE-OUT (counter staff)
	counter := staff.Group("/")
	counter.Use(middlewares.RequireRole(models.RoleStaff))
	{
		counter.POST("/sessions/:session_id/paid", boardCtrl.MarkPaid)
		counter.POST("/sessions/:session_id/release", boardCtrl.ReleaseTable)
	}

	// DELIVERY (counter staff + couriers)
	staff.POST("/delivery", deliveryCtrl.CreateDeliveryOrder)
	staff.GET("/delivery", deliveryCtrl.ListDeliveryOrders)
	staff.PATCH("/delivery/:order_id/status", deliveryCtrl.AdvanceDeliveryStatus)
	staff.POST("/delivery/:order_id/location", deliveryCtrl.ReportLocation)

	// ----------------------------------------------------------------
	//                      WEBSOCKET
	// ----------------------------------------------------------------
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/board", controllers.KDSHandler)
	}

	return r
}
