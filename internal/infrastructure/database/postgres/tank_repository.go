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

// TankRepository implements station.TankRepository
type TankRepository struct {
	db *DB
}

func NewTankRepository(db *DB) *TankRepository {
	return &TankRepository{db: db}
}

func (r *TankRepository) Get(ctx context.Context, tankID, address string) (*station.Tank, error) {
	var dbModel models.TankModel
	err := r.db.DB.WithContext(ctx).
		Where("tank_id = ? AND address = ?", tankID, address).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tank: %w", err)
	}

	return toTankEntity(&dbModel), nil
}

// GetByAddress returns the first tank probe wired to the controller at address.
func (r *TankRepository) GetByAddress(ctx context.Context, address string) (*station.Tank, error) {
	var dbModel models.TankModel
	err := r.db.DB.WithContext(ctx).
		Where("address = ?", address).
		Order("tank_id ASC").
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tank by address: %w", err)
	}

	return toTankEntity(&dbModel), nil
}

func (r *TankRepository) List(ctx context.Context) ([]*station.Tank, error) {
	var dbModels []models.TankModel
	if err := r.db.DB.WithContext(ctx).Order("address ASC, tank_id ASC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list tanks: %w", err)
	}

	out := make([]*station.Tank, len(dbModels))
	for i := range dbModels {
		out[i] = toTankEntity(&dbModels[i])
	}
	return out, nil
}

func (r *TankRepository) Update(ctx context.Context, tankID, address string, update station.TankUpdate, at time.Time) error {
	cols := tankColumns(update)
	cols["last_updated"] = at

	result := r.db.DB.WithContext(ctx).
		Model(&models.TankModel{}).
		Where("tank_id = ? AND address = ?", tankID, address).
		Updates(cols)

	if result.Error != nil {
		return fmt.Errorf("failed to update tank: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTankNotFound
	}
	return nil
}

func (r *TankRepository) UpdateConnection(ctx context.Context, tankID, address string, connected bool, at time.Time) error {
	cols := connectionColumns(connected, at)
	if !connected {
		cols["status"] = station.TankStatusOffline
	}

	result := r.db.DB.WithContext(ctx).
		Model(&models.TankModel{}).
		Where("tank_id = ? AND address = ?", tankID, address).
		Updates(cols)

	if result.Error != nil {
		return fmt.Errorf("failed to update tank connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTankNotFound
	}
	return nil
}
