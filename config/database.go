package config

import (
	"fmt"
	"strings"
	"time"

	"barberpro-backend/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens PostgreSQL when DB_URL is set and a local SQLite file otherwise.
func ConnectDB(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	if cfg.DBURL != "" {
		dialector = postgres.Open(cfg.DBURL)
	} else {
		dialector = sqlite.Open(cfg.SQLite)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if strings.EqualFold(db.Dialector.Name(), "postgres") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		log.Info("database: connected to PostgreSQL")
	} else {
		log.Info("database: using SQLite", zap.String("path", cfg.SQLite))
	}
	return db, nil
}

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Barbershop{},
		&models.Barber{},
		&models.Service{},
		&models.MessageTemplate{},
		&models.Appointment{},
		&models.ReminderQueueEntry{},
		&models.ReminderLog{},
	)
}
