package database

import (
	"fmt"

	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection with configuration and runs migrations
func InitDB(config *config.Config) error {
	pgConfig := postgres.Config{
		DSN:                  config.DB.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	conn, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(config.DB.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(config.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.DB.ConnMaxLifetime)

	if err := Migrate(conn); err != nil {
		return err
	}

	db = conn
	return nil
}

// Migrate creates or updates every table and seeds the fixed lookup rows
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	if err := seedPersonTypes(conn); err != nil {
		return fmt.Errorf("failed to seed person types: %w", err)
	}
	return nil
}

func seedPersonTypes(conn *gorm.DB) error {
	for _, name := range model.DefaultPersonTypes {
		pt := model.PersonType{Name: name}
		if err := conn.Where(model.PersonType{Name: name}).FirstOrCreate(&pt).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the database instance, used by tests and tools that open their own connection
func SetDB(conn *gorm.DB) {
	db = conn
}
