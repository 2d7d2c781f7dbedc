package postgres

import (
	"context"
	"fmt"
	"time"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/infrastructure/database/postgres/models"
)

// TransactionRepository implements station.TransactionRepository
type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *station.Transaction) error {
	dbModel := toTransactionModel(tx)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

type nozzleTotal struct {
	DispenserID string
	NozzleID    string
	Total       float64
}

// SumAmountsByNozzle totals sale amounts per nozzle for transactions in [from, to).
func (r *TransactionRepository) SumAmountsByNozzle(ctx context.Context, from, to time.Time) (map[station.NozzleKey]float64, error) {
	var rows []nozzleTotal
	err := r.db.DB.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("dispenser_id, nozzle_id, COALESCE(SUM(amount), 0) AS total").
		Where("transaction_time >= ? AND transaction_time < ?", from, to).
		Group("dispenser_id, nozzle_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}

	out := make(map[station.NozzleKey]float64, len(rows))
	for _, row := range rows {
		out[station.NozzleKey{DispenserID: row.DispenserID, NozzleID: row.NozzleID}] = row.Total
	}
	return out, nil
}
