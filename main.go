package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/config"
	"github.com/hikarusato/tablelink/database"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/router"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const tableCount = 18

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	if err := database.SeedTables(db, tableCount); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed tables: %v", err)
	}

	// 500ms poll keeps board staleness well under the 2s bound.
	monitor := services.NewChangeMonitor(db)
	monitor.Interval = 500 * time.Millisecond
	monitor.Start()
	defer monitor.Stop()

	tracker := services.NewDeliveryTracker(db)
	defer tracker.StopAll()

	r := router.SetupRouter(db, tracker)
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.TableSession{},
		&models.SessionOrder{},
		&models.DeliveryOrder{},
		&models.DeliveryLocation{},
		&models.DBChange{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if err := database.ExecuteTriggers(db); err != nil {
		utils.ErrorLogger.Printf("Error setting up triggers: %v", err)
	}
}
