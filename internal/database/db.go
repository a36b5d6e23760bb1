package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"salesperf-backend/internal/config"
	"salesperf-backend/internal/models"
)

const slowQueryThreshold = 200 * time.Millisecond

// Open connects to Postgres. SQL logging goes through log at warn level, or
// every statement when the configured level is debug.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema, then adds the constraints gorm tags
// cannot express.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.SalesRecord{},
		&models.Target{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := ensureTargetOwnerCheck(db, log); err != nil {
		return err
	}
	return ensureSalesWindowIndex(db, log)
}

const targetOwnerCheck = "chk_targets_single_owner"

// ensureTargetOwnerCheck makes the database reject a target with both or
// neither of branch_id and coordinator_id.
func ensureTargetOwnerCheck(db *gorm.DB, log *zap.Logger) error {
	var exists bool
	if err := db.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.table_constraints
			WHERE table_name = 'targets'
			AND constraint_name = ?
		)
	`, targetOwnerCheck).Scan(&exists).Error; err != nil {
		return fmt.Errorf("look up %s: %w", targetOwnerCheck, err)
	}
	if exists {
		return nil
	}
	if err := db.Exec(`
		ALTER TABLE targets
		ADD CONSTRAINT ` + targetOwnerCheck + `
		CHECK ((branch_id IS NULL) <> (coordinator_id IS NULL))
	`).Error; err != nil {
		return fmt.Errorf("add %s: %w", targetOwnerCheck, err)
	}
	log.Info("added constraint", zap.String("constraint", targetOwnerCheck))
	return nil
}

// ensureSalesWindowIndex backs the branch-scoped window sums of dashboards
// and reports.
func ensureSalesWindowIndex(db *gorm.DB, log *zap.Logger) error {
	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_sales_records_branch_date ON sales_records (branch_id, date)",
	).Error; err != nil {
		return fmt.Errorf("create sales window index: %w", err)
	}
	log.Debug("sales window index present")
	return nil
}
