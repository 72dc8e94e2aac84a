package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cppla/phishguard/models"
)

var db *gorm.DB

// InitDatabase connects using the loaded configuration, migrates the given
// models and seeds lookup tables. It exits the process on failure.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	c := Get()
	conn, err := OpenDatabase(c.Database, c.Log.Level)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := Migrate(conn, modelDefs...); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	if err := Seed(conn); err != nil {
		log.Fatalf("database seed failed: %v", err)
	}
	db = conn
	return db
}

// OpenDatabase opens a pooled gorm connection for the configured driver and pings it.
func OpenDatabase(dc DatabaseSection, logLevel string) (*gorm.DB, error) {
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var dialector gorm.Dialector
	switch dc.Driver {
	case "postgres":
		dsn := dc.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
				dc.Host, dc.User, dc.Password, dc.Name, dc.Port, dc.SSLMode)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dsn := dc.DSN
		if dsn == "" {
			dsn = dc.Name + ".db"
		}
		dialector = sqlite.Open(dsn)
	default:
		dsn := dc.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
		}
		dialector = mysql.Open(dsn)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if dc.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(dc.MaxIdleConns)
		sqlDB.SetMaxOpenConns(dc.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(dc.ConnMaxLifetimeMinutes) * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

// Migrate creates missing tables and columns. It never drops anything.
func Migrate(conn *gorm.DB, modelDefs ...interface{}) error {
	if len(modelDefs) == 0 {
		modelDefs = models.All()
	}
	for _, model := range modelDefs {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migrate %T: %w", model, err)
		}
	}
	return nil
}

// Seed inserts the fixed report statuses and notification types. Existing rows are kept.
func Seed(conn *gorm.DB) error {
	statuses := []models.ReportStatus{
		{ID: models.StatusPending, Name: "pending", Description: "Waiting for review"},
		{ID: models.StatusInProgress, Name: "in_progress", Description: "Being investigated by a moderator"},
		{ID: models.StatusCompleted, Name: "completed", Description: "Action has been taken"},
		{ID: models.StatusRejected, Name: "rejected", Description: "Not a valid threat"},
	}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return fmt.Errorf("seed report statuses: %w", err)
	}

	types := []models.NotificationType{
		{ID: models.NotificationReportStatusChange, Name: "REPORT_STATUS_CHANGE", Description: "A report you submitted changed status", IsActive: true},
		{ID: models.NotificationNewComment, Name: "NEW_COMMENT_ON_REPORT", Description: "Someone commented on your report", IsActive: true},
		{ID: models.NotificationReportTrending, Name: "REPORT_TRENDING", Description: "Your report is receiving many votes", IsActive: true},
		{ID: models.NotificationSystemAnnouncement, Name: "SYSTEM_ANNOUNCEMENT", Description: "Announcements from the platform", IsActive: true},
		{ID: models.NotificationAdminMessage, Name: "ADMIN_MESSAGE", Description: "Direct message from an administrator", IsActive: true},
	}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error; err != nil {
		return fmt.Errorf("seed notification types: %w", err)
	}
	return nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
