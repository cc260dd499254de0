package database

import (
	"errors"

	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
	"gorm.io/gorm"
)

// SeedTables provisions tables 1..count with fresh QR tokens, skipping any
// that already exist. This deployment runs 18 tables.
func SeedTables(db *gorm.DB, count int) error {
	for number := 1; number <= count; number++ {
		var existing models.Table
		err := db.Where("table_number = ?", number).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		token, err := utils.NewTableToken()
		if err != nil {
			return err
		}
		table := models.Table{TableNumber: number, SessionToken: token}
		if err := db.Create(&table).Error; err != nil {
			return err
		}
		utils.InfoLogger.Printf("Seeded table %d", number)
	}
	return nil
}
