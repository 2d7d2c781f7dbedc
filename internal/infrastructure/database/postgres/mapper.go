package postgres

import (
	"time"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/infrastructure/database/postgres/models"
)

func toDispenserEntity(m *models.DispenserModel) *station.Dispenser {
	return &station.Dispenser{
		DispenserID:    m.DispenserID,
		StationID:      m.StationID,
		Address:        m.Address,
		ConnStatus:     m.ConnStatus,
		ConnectedAt:    m.ConnectedAt,
		DisconnectedAt: m.DisconnectedAt,
		IRLockStatus:   m.IRLockStatus,
	}
}

func toNozzleEntity(m *models.NozzleModel) *station.Nozzle {
	return &station.Nozzle{
		DispenserID:      m.DispenserID,
		NozzleID:         m.NozzleID,
		StationID:        m.StationID,
		Product:          m.Product,
		Status:           m.Status,
		PricePerLiter:    m.PricePerLiter,
		TotalQuantity:    m.TotalQuantity,
		TotalAmount:      m.TotalAmount,
		TotalSalesToday:  m.TotalSalesToday,
		LockUnlock:       m.LockUnlock,
		KeypadLockStatus: m.KeypadLockStatus,
		Price:            m.Price,
		Quantity:         m.Quantity,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toNozzleHistoryModel(n *station.Nozzle, at time.Time) *models.NozzleHistoryModel {
	return &models.NozzleHistoryModel{
		DispenserID:      n.DispenserID,
		NozzleID:         n.NozzleID,
		Status:           n.Status,
		PricePerLiter:    n.PricePerLiter,
		TotalQuantity:    n.TotalQuantity,
		TotalAmount:      n.TotalAmount,
		TotalSalesToday:  n.TotalSalesToday,
		LockUnlock:       n.LockUnlock,
		KeypadLockStatus: n.KeypadLockStatus,
		Price:            n.Price,
		Quantity:         n.Quantity,
		RecordedAt:       at,
	}
}

func toTankEntity(m *models.TankModel) *station.Tank {
	return &station.Tank{
		TankID:          m.TankID,
		Address:         m.Address,
		StationID:       m.StationID,
		Product:         m.Product,
		Status:          m.Status,
		ProductLevelMm:  m.ProductLevelMm,
		ProductLevelLtr: m.ProductLevelLtr,
		WaterLevelMm:    m.WaterLevelMm,
		WaterLevelLtr:   m.WaterLevelLtr,
		Temperature:     m.Temperature,
		ConnStatus:      m.ConnStatus,
		ConnectedAt:     m.ConnectedAt,
		DisconnectedAt:  m.DisconnectedAt,
		LastUpdated:     m.LastUpdated,
		DipChartPath:    m.DipChartPath,
		MaxCapacityMm:   m.MaxCapacityMm,
		MaxCapacityLtr:  m.MaxCapacityLtr,
	}
}

func toTransactionModel(tx *station.Transaction) *models.TransactionModel {
	return &models.TransactionModel{
		DispenserID:     tx.DispenserID,
		NozzleID:        tx.NozzleID,
		TransactionTime: tx.Time,
		Amount:          tx.Amount,
		Volume:          tx.Volume,
	}
}

// nozzleColumns maps the set fields of an update to column values.
func nozzleColumns(u station.NozzleUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.PricePerLiter != nil {
		cols["price_per_liter"] = *u.PricePerLiter
	}
	if u.TotalQuantity != nil {
		cols["total_quantity"] = *u.TotalQuantity
	}
	if u.TotalAmount != nil {
		cols["total_amount"] = *u.TotalAmount
	}
	if u.LockUnlock != nil {
		cols["lock_unlock"] = *u.LockUnlock
	}
	if u.KeypadLockStatus != nil {
		cols["keypad_lock_status"] = *u.KeypadLockStatus
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	if u.Quantity != nil {
		cols["quantity"] = *u.Quantity
	}
	return cols
}

func tankColumns(u station.TankUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.ProductLevelMm != nil {
		cols["product_level_mm"] = *u.ProductLevelMm
	}
	if u.ProductLevelLtr != nil {
		cols["product_level_ltr"] = *u.ProductLevelLtr
	}
	if u.WaterLevelMm != nil {
		cols["water_level_mm"] = *u.WaterLevelMm
	}
	if u.WaterLevelLtr != nil {
		cols["water_level_ltr"] = *u.WaterLevelLtr
	}
	if u.Temperature != nil {
		cols["temperature"] = *u.Temperature
	}
	return cols
}

// connectionColumns sets the session flag plus the timestamp matching its direction.
func connectionColumns(connected bool, at time.Time) map[string]interface{} {
	cols := map[string]interface{}{"conn_status": connected}
	if connected {
		cols["connected_at"] = at
	} else {
		cols["disconnected_at"] = at
	}
	return cols
}
