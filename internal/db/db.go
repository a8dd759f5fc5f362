// Package db handles database connection, schema migration and seeding.
package db

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nsimpex/api/internal/config"
	"github.com/nsimpex/api/internal/models"
)

// ConnectAndMigrate opens the PostgreSQL connection, retries while the
// database comes up, then applies the schema (SQL migrations when
// MIGRATIONS=1, AutoMigrate otherwise) and optional seed data.
func ConnectAndMigrate(cfg *config.Config) (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Println("retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	log.Println("[DB] using DSN:", masked)

	if cfg.App.Migrations {
		if err := runSQLMigrations(cfg.Database.URL()); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	if !db.Migrator().HasTable(&models.Order{}) {
		return nil, fmt.Errorf("schema sanity check failed: orders table missing")
	}

	if cfg.App.Seed {
		if err := Seed(db); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return db, nil
}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AdminUser{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderCustomerInfo{},
		&models.OrderItem{},
		&models.Invoice{},
		&models.InvoiceItem{},
	)
}

// Seed initializes the database with the base categories and, when
// ADMIN_USERNAME/ADMIN_PASSWORD are set, a first admin account.
// Existing rows are never overwritten.
func Seed(db *gorm.DB) error {
	baseCategories := []string{
		"Гранит",
		"Мрамор",
		"Варовик",
		"Пясъчник",
		"Декоративни камъни",
	}
	for _, name := range baseCategories {
		var existing models.Category
		err := db.Where("name = ?", name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if cErr := db.Create(&models.Category{Name: name}).Error; cErr != nil {
				return cErr
			}
		} else if err != nil {
			return err
		}
	}

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	var existing models.AdminUser
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&models.AdminUser{Username: username, PasswordHash: string(hash)}).Error
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
