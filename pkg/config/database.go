package config

import (
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"profitpool/internal/repository"
)

var DB *gorm.DB

// InitDB opens the postgres connection and, when enabled, migrates the
// ledger tables.
func InitDB(s DatabaseSettings) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(s.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if s.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	DB = db
	logger.WithFields(logger.Fields{"host": s.Host, "dbname": s.Name}).Info("database connected")
	return db, nil
}
