package database

import (
	"fmt"

	"github.com/daniyousefifar/temptokens/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func ProvideDatabase(cfg config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	// TranslateError is required so duplicate-key violations surface as
	// gorm.ErrDuplicatedKey across all three drivers.
	gormConfig := &gorm.Config{TranslateError: true}

	switch cfg.Database.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Database.DSN), gormConfig)
	case "postgres", "postgresql":
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN), gormConfig)
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Database.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
