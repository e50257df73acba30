package database

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/config"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

var DB *gorm.DB

func Connect() {
	logger := utils.GetLogger()

	dsn := config.AppConfig.DatabaseDSN
	if dsn == "" {
		dsn = buildDSN()
	}

	var err error
	// TranslateError turns postgres unique violations into
	// gorm.ErrDuplicatedKey, which the store maps to ErrDuplicateBooking.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	logger.Info("database connected")
}

func buildDSN() string {
	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		dbUser = "postgres"
	}

	dbPass := os.Getenv("DB_PASS")
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "milo"
	}

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		dbHost, dbUser, dbPass, dbName)
}
