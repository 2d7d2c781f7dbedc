package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/calibration"
	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

type level int

const (
	productLevel level = iota
	waterLevel
)

func (l level) field() string {
	if l == waterLevel {
		return "water_level_mm"
	}
	return "product_level_mm"
}

func tankKey(tankID, address string) string {
	return "tank:" + address + "/" + tankID
}

// ApplyTankStatus stores the gauge status code.
func (r *Reconciler) ApplyTankStatus(ctx context.Context, tankID, address string, status int) (Outcome, error) {
	update := station.TankUpdate{Status: station.Int(status)}
	return r.updateTank(ctx, tankID, address, update)
}

// ApplyTankTemperature stores the product temperature in degrees Celsius.
func (r *Reconciler) ApplyTankTemperature(ctx context.Context, tankID, address string, celsius float64) (Outcome, error) {
	if err := finite("temperature", celsius); err != nil {
		return Rejected, err
	}
	update := station.TankUpdate{Temperature: station.Float(celsius)}
	return r.updateTank(ctx, tankID, address, update)
}

// ApplyProductLevel converts a product dip reading to litres net of the stored water volume.
func (r *Reconciler) ApplyProductLevel(ctx context.Context, tankID, address string, mm float64) (Outcome, error) {
	return r.applyLevel(ctx, tankID, address, mm, productLevel)
}

// ApplyWaterLevel converts a water dip reading to litres. The product volume is
// corrected on the next product reading.
func (r *Reconciler) ApplyWaterLevel(ctx context.Context, tankID, address string, mm float64) (Outcome, error) {
	return r.applyLevel(ctx, tankID, address, mm, waterLevel)
}

func (r *Reconciler) applyLevel(ctx context.Context, tankID, address string, mm float64, kind level) (Outcome, error) {
	if err := finite(kind.field(), mm); err != nil {
		return Rejected, err
	}

	minimum := r.thresholds.MinProductLevelMm
	if kind == waterLevel {
		minimum = r.thresholds.MinWaterLevelMm
	}
	if mm < minimum {
		return Rejected, apperrors.NewValidationError(kind.field(), mm,
			fmt.Sprintf("below minimum valid reading %.2fmm", minimum))
	}

	tank, err := r.tanks.Get(ctx, tankID, address)
	if err != nil {
		return Failed, fmt.Errorf("load tank %s: %w", tankKey(tankID, address), err)
	}

	table := r.loadTable(ctx, tank)

	maximum := tank.MaxCapacityMm
	if table != nil {
		maximum = table.MaxMeasurement()
	}
	if maximum > 0 && mm > maximum {
		return Rejected, apperrors.NewValidationError(kind.field(), mm,
			fmt.Sprintf("above calibrated maximum %.2fmm", maximum))
	}

	dedupKey := tankKey(tankID, address) + ":" + kind.field()
	if r.duplicate(dedupKey, mm) {
		return Suppressed, nil
	}

	var update station.TankUpdate
	switch kind {
	case productLevel:
		liters := tank.ProductLevelLtr - tank.WaterLevelLtr
		if table != nil {
			if v, convErr := table.Convert(mm); convErr == nil {
				liters = v - tank.WaterLevelLtr
			} else {
				r.conversionFallback(tank, mm, convErr)
			}
		}
		update.ProductLevelMm = station.Float(mm)
		update.ProductLevelLtr = station.Float(nonNegative(liters))
	case waterLevel:
		liters := tank.WaterLevelLtr
		if table != nil {
			if v, convErr := table.Convert(mm); convErr == nil {
				liters = v
			} else {
				r.conversionFallback(tank, mm, convErr)
			}
		}
		update.WaterLevelMm = station.Float(mm)
		update.WaterLevelLtr = station.Float(nonNegative(liters))
	}

	if err := r.tanks.Update(ctx, tankID, address, update, r.now()); err != nil {
		return Failed, fmt.Errorf("update tank %s: %w", tankKey(tankID, address), err)
	}
	r.applied(dedupKey, mm)
	return Applied, nil
}

// loadTable returns nil when the tank has no chart or the chart cannot be loaded.
func (r *Reconciler) loadTable(ctx context.Context, tank *station.Tank) *calibration.Table {
	if tank.DipChartPath == "" || r.calibration == nil {
		return nil
	}

	table, err := r.calibration.GetTable(ctx, calibration.TankRef{
		Address: tank.Address,
		TankID:  tank.TankID,
		Path:    tank.DipChartPath,
	})
	if err != nil {
		r.logger.Warn("Dip chart unavailable, keeping stored volume",
			zap.String("reason", "conversion"),
			zap.String("tank", tankKey(tank.TankID, tank.Address)),
			zap.String("path", tank.DipChartPath),
			zap.Error(err),
		)
		return nil
	}
	return table
}

func (r *Reconciler) conversionFallback(tank *station.Tank, mm float64, err error) {
	r.logger.Warn("Dip conversion failed, keeping stored volume",
		zap.String("reason", "conversion"),
		zap.String("tank", tankKey(tank.TankID, tank.Address)),
		zap.Float64("mm", mm),
		zap.Error(err),
	)
}

func (r *Reconciler) updateTank(ctx context.Context, tankID, address string, update station.TankUpdate) (Outcome, error) {
	key := tankKey(tankID, address)
	if r.duplicate(key, update) {
		return Suppressed, nil
	}
	if err := r.tanks.Update(ctx, tankID, address, update, r.now()); err != nil {
		return Failed, fmt.Errorf("update tank %s: %w", key, err)
	}
	r.applied(key, update)
	return Applied, nil
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
