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
	"gorm.io/gorm/clause"
)

// NozzleRepository implements station.NozzleRepository
type NozzleRepository struct {
	db *DB
}

func NewNozzleRepository(db *DB) *NozzleRepository {
	return &NozzleRepository{db: db}
}

func (r *NozzleRepository) Get(ctx context.Context, dispenserID, nozzleID string) (*station.Nozzle, error) {
	var dbModel models.NozzleModel
	err := r.db.DB.WithContext(ctx).
		Where("dispenser_id = ? AND nozzle_id = ?", dispenserID, nozzleID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNozzleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nozzle: %w", err)
	}

	return toNozzleEntity(&dbModel), nil
}

func (r *NozzleRepository) ListByDispenser(ctx context.Context, dispenserID string) ([]*station.Nozzle, error) {
	var dbModels []models.NozzleModel
	err := r.db.DB.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		Order("nozzle_id ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list nozzles: %w", err)
	}

	out := make([]*station.Nozzle, len(dbModels))
	for i := range dbModels {
		out[i] = toNozzleEntity(&dbModels[i])
	}
	return out, nil
}

func (r *NozzleRepository) Update(ctx context.Context, dispenserID, nozzleID string, update station.NozzleUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	cols := nozzleColumns(update)
	cols["updated_at"] = time.Now()

	result := r.db.DB.WithContext(ctx).
		Model(&models.NozzleModel{}).
		Where("dispenser_id = ? AND nozzle_id = ?", dispenserID, nozzleID).
		Updates(cols)

	if result.Error != nil {
		return fmt.Errorf("failed to update nozzle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNozzleNotFound
	}
	return nil
}

// AddSalesToday increments in a single statement so concurrent batches for the
// same nozzle cannot lose an update.
func (r *NozzleRepository) AddSalesToday(ctx context.Context, dispenserID, nozzleID string, amount, ceiling float64) (float64, error) {
	var dbModel models.NozzleModel
	result := r.db.DB.WithContext(ctx).
		Model(&dbModel).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "total_sales_today"}}}).
		Where("dispenser_id = ? AND nozzle_id = ?", dispenserID, nozzleID).
		Updates(map[string]interface{}{
			"total_sales_today": gorm.Expr("LEAST(total_sales_today + ?, ?)", amount, ceiling),
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to add sales: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, apperrors.ErrNozzleNotFound
	}
	return dbModel.TotalSalesToday, nil
}

func (r *NozzleRepository) SetOfflineByDispenser(ctx context.Context, dispenserID string) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.NozzleModel{}).
		Where("dispenser_id = ?", dispenserID).
		Updates(map[string]interface{}{
			"status":     station.NozzleOffline,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark nozzles offline: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *NozzleRepository) ResetSalesToday(ctx context.Context) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&models.NozzleModel{}).
		Update("total_sales_today", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset daily sales: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *NozzleRepository) SetSalesToday(ctx context.Context, key station.NozzleKey, total float64) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.NozzleModel{}).
		Where("dispenser_id = ? AND nozzle_id = ?", key.DispenserID, key.NozzleID).
		Update("total_sales_today", total)

	if result.Error != nil {
		return fmt.Errorf("failed to set daily sales: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNozzleNotFound
	}
	return nil
}

func (r *NozzleRepository) AppendHistory(ctx context.Context, nozzle *station.Nozzle) error {
	at := nozzle.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := r.db.DB.WithContext(ctx).Create(toNozzleHistoryModel(nozzle, at)).Error; err != nil {
		return fmt.Errorf("failed to append nozzle history: %w", err)
	}
	return nil
}
