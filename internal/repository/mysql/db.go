package mysql

import (
	"log"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init opens the shared GORM handle and migrates the two ledger tables.
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}

		if err = db.AutoMigrate(&account.Account{}, &dispense.Transaction{}); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}
	})
	return db
}

// DB returns the shared handle.
func DB() *gorm.DB {
	return db
}
