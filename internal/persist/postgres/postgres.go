// Package postgres persists queue state in PostgreSQL through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/roach88/nestq/internal/record"
)

// DefaultNamespace is used when Open is given an empty namespace.
const DefaultNamespace = "default"

// StateRow is one namespace's saved state.
type StateRow struct {
	Namespace string    `gorm:"type:varchar(255);primaryKey"`
	Data      string    `gorm:"type:jsonb;not null"`
	Records   int       `gorm:"not null;default:0"`
	Seq       int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName override
func (StateRow) TableName() string {
	return "nestq_state"
}

// Adapter stores queue state for one namespace.
type Adapter struct {
	db        *gorm.DB
	namespace string
}

// Open connects to dsn and migrates the state table.
func Open(dsn, namespace string) (*Adapter, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, namespace)
}

// New wraps an existing connection and migrates the state table.
func New(db *gorm.DB, namespace string) (*Adapter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := db.AutoMigrate(&StateRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Adapter{db: db, namespace: namespace}, nil
}

// Close closes the underlying connection pool.
func (a *Adapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts the namespace's row.
func (a *Adapter) Save(ctx context.Context, state []record.Record) error {
	data, err := record.MarshalState(state)
	if err != nil {
		return err
	}

	row := StateRow{
		Namespace: a.namespace,
		Data:      string(data),
		Records:   len(state),
		Seq:       1,
	}
	err = a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.Assignments(map[string]any{
			"data":       row.Data,
			"records":    row.Records,
			"seq":        gorm.Expr("nestq_state.seq + 1"),
			"updated_at": gorm.Expr("now()"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load returns the saved state, or nil when the namespace has none.
func (a *Adapter) Load(ctx context.Context) ([]record.Record, error) {
	var row StateRow
	err := a.db.WithContext(ctx).First(&row, "namespace = ?", a.namespace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return record.UnmarshalState([]byte(row.Data))
}

// Clear deletes the namespace's row.
func (a *Adapter) Clear(ctx context.Context) error {
	err := a.db.WithContext(ctx).
		Where("namespace = ?", a.namespace).
		Delete(&StateRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}
