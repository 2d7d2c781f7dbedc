package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

// NozzleField names a nozzle column that a single numeric reading sets directly.
type NozzleField string

const (
	FieldPricePerLiter NozzleField = "price_per_liter"
	FieldTotalQuantity NozzleField = "total_quantity"
	FieldTotalAmount   NozzleField = "total_amount"
	FieldLockUnlock    NozzleField = "lock_unlock"
	FieldKeypadLock    NozzleField = "keypad_lock_status"
)

func nozzleKey(dispenserID, nozzleID string) string {
	return "nozzle:" + dispenserID + "/" + nozzleID
}

// ApplyNozzleStatus stores the online status code. An online reading refreshes liveness
// even when the write itself is suppressed as a duplicate.
func (r *Reconciler) ApplyNozzleStatus(ctx context.Context, dispenserID, nozzleID string, status int) (Outcome, error) {
	if status == station.NozzleOnline && r.liveness != nil {
		r.liveness.Touch(nozzleID, dispenserID)
	}
	return r.updateNozzle(ctx, dispenserID, nozzleID, station.NozzleUpdate{Status: station.Int(status)}, false)
}

// ApplyNozzleField sets one numeric nozzle field. Money and volume values are clamped, not rejected.
func (r *Reconciler) ApplyNozzleField(ctx context.Context, dispenserID, nozzleID string, field NozzleField, value float64) (Outcome, error) {
	var update station.NozzleUpdate

	switch field {
	case FieldPricePerLiter, FieldTotalQuantity, FieldTotalAmount:
		v, err := r.clampDecimal(string(field), value)
		if err != nil {
			return Rejected, err
		}
		switch field {
		case FieldPricePerLiter:
			update.PricePerLiter = &v
		case FieldTotalQuantity:
			update.TotalQuantity = &v
		default:
			update.TotalAmount = &v
		}
	case FieldLockUnlock, FieldKeypadLock:
		if err := finite(string(field), value); err != nil {
			return Rejected, err
		}
		flag := int(value)
		if field == FieldLockUnlock {
			update.LockUnlock = &flag
		} else {
			update.KeypadLockStatus = &flag
		}
	default:
		return Rejected, fmt.Errorf("%w: nozzle field %q", apperrors.ErrUnhandled, field)
	}

	return r.updateNozzle(ctx, dispenserID, nozzleID, update, false)
}

// MarkNozzleOffline forces the nozzle status to offline. It is never suppressed.
func (r *Reconciler) MarkNozzleOffline(ctx context.Context, dispenserID, nozzleID string) error {
	_, err := r.updateNozzle(ctx, dispenserID, nozzleID, station.NozzleUpdate{Status: station.Int(station.NozzleOffline)}, true)
	return err
}

// ApplyDispenserIRLock stores the dispenser-wide infrared lock flag.
func (r *Reconciler) ApplyDispenserIRLock(ctx context.Context, dispenserID string, status int) (Outcome, error) {
	key := "dispenser:" + dispenserID
	payload := map[string]int{"ir_lock_status": status}
	if r.duplicate(key, payload) {
		return Suppressed, nil
	}

	if err := r.dispensers.UpdateIRLock(ctx, dispenserID, status); err != nil {
		return Failed, fmt.Errorf("update ir lock for dispenser %s: %w", dispenserID, err)
	}
	r.applied(key, payload)
	return Applied, nil
}

// ApplyTransactionBatch records each sale, sets price and quantity from the last
// entry and adds the batch total to today's sales. The batch counts as applied
// once any of its records is stored: a redelivery would append them twice.
func (r *Reconciler) ApplyTransactionBatch(ctx context.Context, dispenserID, nozzleID string, batch []station.Transaction) (Outcome, error) {
	if len(batch) == 0 {
		return Rejected, apperrors.NewValidationError("transactions", 0, "empty transaction batch")
	}

	key := nozzleKey(dispenserID, nozzleID)
	dedupKey := "sales:" + key

	// checked under the lock so a concurrent redelivery sees the first batch's record
	unlock := r.locks.Lock(key)
	defer unlock()

	if r.duplicate(dedupKey, batch) {
		return Suppressed, nil
	}

	if _, err := r.nozzles.Get(ctx, dispenserID, nozzleID); err != nil {
		return Failed, fmt.Errorf("load nozzle %s: %w", key, err)
	}

	var (
		total   float64
		written int
		last    *station.Transaction
	)
	for i := range batch {
		tx := batch[i]
		tx.DispenserID = dispenserID
		tx.NozzleID = nozzleID

		amount, errA := r.clampDecimal("amount", tx.Amount)
		volume, errV := r.clampDecimal("volume", tx.Volume)
		if err := errors.Join(errA, errV); err != nil {
			r.logger.Warn("Skipping transaction with invalid values",
				zap.String("nozzle", key),
				zap.Time("time", tx.Time),
				zap.Error(err),
			)
			continue
		}
		tx.Amount, tx.Volume = amount, volume

		if err := r.transactions.Create(ctx, &tx); err != nil {
			r.logger.Error("Failed to store transaction",
				zap.String("nozzle", key),
				zap.Time("time", tx.Time),
				zap.Float64("amount", tx.Amount),
				zap.Error(err),
			)
			continue
		}
		total += tx.Amount
		written++
		last = &tx
	}

	if written == 0 {
		return Failed, fmt.Errorf("no transactions stored for nozzle %s", key)
	}
	r.applied(dedupKey, batch)

	update := station.NozzleUpdate{Price: station.Float(last.Amount), Quantity: station.Float(last.Volume)}
	if err := r.nozzles.Update(ctx, dispenserID, nozzleID, update); err != nil {
		return Failed, fmt.Errorf("update last sale for nozzle %s: %w", key, err)
	}

	salesToday, err := r.nozzles.AddSalesToday(ctx, dispenserID, nozzleID, total, r.thresholds.MaxDecimal)
	if err != nil {
		return Failed, fmt.Errorf("add sales for nozzle %s: %w", key, err)
	}

	r.logger.Debug("Transactions applied",
		zap.String("nozzle", key),
		zap.Int("count", written),
		zap.Float64("batch_total", total),
		zap.Float64("sales_today", salesToday),
	)

	r.snapshot(ctx, dispenserID, nozzleID)
	return Applied, nil
}

func (r *Reconciler) updateNozzle(ctx context.Context, dispenserID, nozzleID string, update station.NozzleUpdate, bypass bool) (Outcome, error) {
	key := nozzleKey(dispenserID, nozzleID)
	if !bypass && r.duplicate(key, update) {
		return Suppressed, nil
	}

	if err := r.nozzles.Update(ctx, dispenserID, nozzleID, update); err != nil {
		return Failed, fmt.Errorf("update nozzle %s: %w", key, err)
	}
	r.applied(key, update)

	r.snapshot(ctx, dispenserID, nozzleID)
	return Applied, nil
}

// snapshot appends the nozzle's current state to its history. Failures only log.
func (r *Reconciler) snapshot(ctx context.Context, dispenserID, nozzleID string) {
	current, err := r.nozzles.Get(ctx, dispenserID, nozzleID)
	if err == nil {
		err = r.nozzles.AppendHistory(ctx, current)
	}
	if err != nil {
		r.logger.Warn("Failed to snapshot nozzle history",
			zap.String("dispenser_id", dispenserID),
			zap.String("nozzle_id", nozzleID),
			zap.Error(err),
		)
	}
}
