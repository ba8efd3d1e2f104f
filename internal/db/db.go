package db

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrEmptyDSN is returned by Connect when no connection string is given.
var ErrEmptyDSN = errors.New("database connection string is empty")

// Options tunes the gorm session opened by Connect.
type Options struct {
	// LogLevel defaults to logger.Warn. Bulk inserts log one line per batch
	// at Info, which is rarely wanted outside debugging.
	LogLevel logger.LogLevel
}

// Connect opens the spatial store.
func Connect(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second, // layer replaces are bulk writes
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // keep WKT payloads out of the log
			Colorful:                  false,
		},
	)

	d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: lg,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := d.DB()
	if err != nil {
		return nil, err
	}

	// One run writes three layers serially; a small pool is plenty.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("Connected to database")
	return d, nil
}

// Close releases the connection pool behind d.
func Close(d *gorm.DB) {
	sqlDB, err := d.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
