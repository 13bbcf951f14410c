package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"validationlake/internal/config"
	"validationlake/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotReady = errors.New("database not ready")

// Open connects to the configured store, waits until it answers and migrates
// the schema. The returned handle is passed explicitly to every repository.
// MySQL sessions read and write times in loc; SQLite always stores UTC.
func Open(ctx context.Context, cfg config.DatabaseConfig, loc *time.Location, log logrus.FieldLogger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.MySQLDSN(loc))
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
		// sqlite keeps timestamps as text; one zone keeps range scans correct
		gcfg.NowFunc = func() time.Time { return time.Now().UTC() }
	default:
		return nil, &config.ConfigurationError{Field: "database.driver", Reason: fmt.Sprintf("unsupported value %q", cfg.Driver)}
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}

	// pool sizing
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := WaitReady(ctx, db, cfg.ReadyInterval, cfg.ReadyAttempts, log); err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.WithField("driver", cfg.Driver).Info("database connected")
	return db, nil
}

// Migrate creates or updates the tables and their indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ValidationRecord{}, &model.OutboxMessage{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// WaitReady is the one-time startup gate: it pings at a fixed interval until the
// store answers or attempts run out. It is not a retry policy for request paths.
func WaitReady(ctx context.Context, db *gorm.DB, interval time.Duration, attempts int, log logrus.FieldLogger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = sqlDB.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		log.WithFields(logrus.Fields{"attempt": i, "error": lastErr}).Warn("waiting for database")
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrNotReady, attempts, lastErr)
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
