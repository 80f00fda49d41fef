package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(models.All()...)
}

var defaultCategories = []models.Category{
	{Name: "Plumbing", Description: "Pipes, taps, water tanks and drainage"},
	{Name: "Electrical", Description: "Wiring, sockets, lighting and appliances"},
	{Name: "Carpentry", Description: "Furniture, doors, roofing timber"},
	{Name: "Masonry", Description: "Brickwork, plastering and tiling"},
	{Name: "Painting", Description: "Interior and exterior painting"},
	{Name: "Cleaning", Description: "Home and office cleaning"},
	{Name: "Welding", Description: "Gates, grills and metal fabrication"},
}

// SeedCategories inserts the reference categories when the table is empty.
func SeedCategories(gdb *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := gdb.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	cats := make([]models.Category, len(defaultCategories))
	copy(cats, defaultCategories)
	if err := gdb.Create(&cats).Error; err != nil {
		return err
	}
	log.Info("seeded categories", zap.Int("count", len(cats)))
	return nil
}
