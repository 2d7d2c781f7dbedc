package ingestion

import (
	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"
)

// ParsedMessage is one decoded device message. The concrete type says which
// component consumes it.
type ParsedMessage interface {
	parsed()
}

// Field names the state a NumericReading targets.
type Field string

const (
	FieldNozzleStatus   Field = "nozzle_status"
	FieldPricePerLiter  Field = "price_per_liter"
	FieldTotalQuantity  Field = "total_quantity"
	FieldTotalAmount    Field = "total_amount"
	FieldLockUnlock     Field = "lock_unlock"
	FieldKeypadLock     Field = "keypad_lock_status"
	FieldIRLock         Field = "ir_lock_status"
	FieldTankStatus     Field = "tank_status"
	FieldProductLevelMm Field = "product_level_mm"
	FieldWaterLevelMm   Field = "water_level_mm"
	FieldTemperature    Field = "temperature"
)

// NozzleScoped reports whether the field addresses a single nozzle rather than the dispenser.
func (f Field) NozzleScoped() bool {
	switch f {
	case FieldNozzleStatus, FieldPricePerLiter, FieldTotalQuantity, FieldTotalAmount,
		FieldLockUnlock, FieldKeypadLock:
		return true
	}
	return false
}

// TankScoped reports whether the field belongs to a tank.
func (f Field) TankScoped() bool {
	switch f {
	case FieldTankStatus, FieldProductLevelMm, FieldWaterLevelMm, FieldTemperature:
		return true
	}
	return false
}

type NumericReading struct {
	Field Field
	Value float64
}

type StructuredStatus struct {
	Status diagnostics.Status
}

type TransactionBatch struct {
	Transactions []station.Transaction
	// Skipped holds the raw triples that could not be parsed.
	Skipped []string
}

type DeviceErrorReport struct {
	Message string
}

type ConnectionAlert struct {
	Event station.ConnectionEvent
}

// Unhandled marks a (class, message type) pair nothing consumes.
type Unhandled struct {
	Class   station.DeviceClass
	MsgType int
}

func (NumericReading) parsed()    {}
func (StructuredStatus) parsed()  {}
func (TransactionBatch) parsed()  {}
func (DeviceErrorReport) parsed() {}
func (ConnectionAlert) parsed()   {}
func (Unhandled) parsed()         {}
