// Package database holds the gorm connection helper and table models of the PostgreSQL
// report store.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/cirquemetrics/internal/log"
	"go.uber.org/zap"
)

// CreateConnection opens a PostgreSQL connection with the standard gorm configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to PostgreSQL...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a PostgreSQL connection:", err)
		return nil, err
	}
	log.Info("PostgreSQL connection successful")

	return db, nil
}
