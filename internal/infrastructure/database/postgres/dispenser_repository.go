package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/infrastructure/database/postgres/models"
	apperrors "fuel-station-monitor/pkg/errors"

	"gorm.io/gorm"
)

// DispenserRepository implements station.DispenserRepository
type DispenserRepository struct {
	db *DB
}

func NewDispenserRepository(db *DB) *DispenserRepository {
	return &DispenserRepository{db: db}
}

func (r *DispenserRepository) GetByID(ctx context.Context, dispenserID string) (*station.Dispenser, error) {
	var dbModel models.DispenserModel
	err := r.db.DB.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDispenserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispenser: %w", err)
	}

	return toDispenserEntity(&dbModel), nil
}

func (r *DispenserRepository) GetByAddress(ctx context.Context, address string) (*station.Dispenser, error) {
	var dbModel models.DispenserModel
	err := r.db.DB.WithContext(ctx).
		Where("address = ?", address).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDispenserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispenser by address: %w", err)
	}

	return toDispenserEntity(&dbModel), nil
}

func (r *DispenserRepository) List(ctx context.Context) ([]*station.Dispenser, error) {
	var dbModels []models.DispenserModel
	if err := r.db.DB.WithContext(ctx).Order("address ASC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list dispensers: %w", err)
	}

	out := make([]*station.Dispenser, len(dbModels))
	for i := range dbModels {
		out[i] = toDispenserEntity(&dbModels[i])
	}
	return out, nil
}

func (r *DispenserRepository) UpdateIRLock(ctx context.Context, dispenserID string, status int) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DispenserModel{}).
		Where("dispenser_id = ?", dispenserID).
		Update("ir_lock_status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update ir lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDispenserNotFound
	}
	return nil
}

func (r *DispenserRepository) UpdateConnection(ctx context.Context, dispenserID string, connected bool, at time.Time) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DispenserModel{}).
		Where("dispenser_id = ?", dispenserID).
		Updates(connectionColumns(connected, at))

	if result.Error != nil {
		return fmt.Errorf("failed to update dispenser connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDispenserNotFound
	}
	return nil
}
