package models

import (
	"time"
)

// DispenserModel represents the database model for Dispensers.
type DispenserModel struct {
	DispenserID    string     `gorm:"type:varchar(64);primaryKey"`
	StationID      string     `gorm:"type:varchar(64);index"`
	Address        string     `gorm:"type:varchar(5);not null;uniqueIndex"`
	ConnStatus     bool       `gorm:"not null;default:false"`
	ConnectedAt    *time.Time `gorm:"type:timestamptz"`
	DisconnectedAt *time.Time `gorm:"type:timestamptz"`
	IRLockStatus   int        `gorm:"column:ir_lock_status;type:integer;not null;default:0"`
}

func (DispenserModel) TableName() string {
	return "dispensers"
}

// NozzleModel holds the latest known state of one nozzle.
type NozzleModel struct {
	DispenserID      string    `gorm:"type:varchar(64);primaryKey"`
	NozzleID         string    `gorm:"type:varchar(64);primaryKey"`
	StationID        string    `gorm:"type:varchar(64);index"`
	Product          string    `gorm:"type:varchar(64)"`
	Status           int       `gorm:"type:integer;not null;default:0"`
	PricePerLiter    float64   `gorm:"type:numeric(15,2);not null;default:0"`
	TotalQuantity    float64   `gorm:"type:numeric(15,2);not null;default:0"`
	TotalAmount      float64   `gorm:"type:numeric(15,2);not null;default:0"`
	TotalSalesToday  float64   `gorm:"type:numeric(15,2);not null;default:0"`
	LockUnlock       int       `gorm:"type:integer;not null;default:0"`
	KeypadLockStatus int       `gorm:"type:integer;not null;default:0"`
	Price            float64   `gorm:"type:numeric(15,2);not null;default:0"`
	Quantity         float64   `gorm:"type:numeric(15,2);not null;default:0"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

func (NozzleModel) TableName() string {
	return "nozzles"
}

// NozzleHistoryModel is an append-only snapshot of a nozzle after each applied reading.
type NozzleHistoryModel struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement"`
	DispenserID      string    `gorm:"type:varchar(64);not null;index:idx_nozzle_history_nozzle"`
	NozzleID         string    `gorm:"type:varchar(64);not null;index:idx_nozzle_history_nozzle"`
	Status           int       `gorm:"type:integer"`
	PricePerLiter    float64   `gorm:"type:numeric(15,2)"`
	TotalQuantity    float64   `gorm:"type:numeric(15,2)"`
	TotalAmount      float64   `gorm:"type:numeric(15,2)"`
	TotalSalesToday  float64   `gorm:"type:numeric(15,2)"`
	LockUnlock       int       `gorm:"type:integer"`
	KeypadLockStatus int       `gorm:"type:integer"`
	Price            float64   `gorm:"type:numeric(15,2)"`
	Quantity         float64   `gorm:"type:numeric(15,2)"`
	RecordedAt       time.Time `gorm:"type:timestamptz;not null;index"`
}

func (NozzleHistoryModel) TableName() string {
	return "nozzle_history"
}

// TankModel holds the latest known state of one tank.
type TankModel struct {
	TankID          string     `gorm:"type:varchar(64);primaryKey"`
	Address         string     `gorm:"type:varchar(5);primaryKey"`
	StationID       string     `gorm:"type:varchar(64);index"`
	Product         string     `gorm:"type:varchar(64)"`
	Status          int        `gorm:"type:integer;not null;default:0"`
	ProductLevelMm  float64    `gorm:"type:numeric(10,2);not null;default:0"`
	ProductLevelLtr float64    `gorm:"type:numeric(15,2);not null;default:0"`
	WaterLevelMm    float64    `gorm:"type:numeric(10,2);not null;default:0"`
	WaterLevelLtr   float64    `gorm:"type:numeric(15,2);not null;default:0"`
	Temperature     float64    `gorm:"type:numeric(6,2);not null;default:0"`
	ConnStatus      bool       `gorm:"not null;default:false"`
	ConnectedAt     *time.Time `gorm:"type:timestamptz"`
	DisconnectedAt  *time.Time `gorm:"type:timestamptz"`
	LastUpdated     *time.Time `gorm:"type:timestamptz"`
	DipChartPath    string     `gorm:"type:varchar(512)"`
	MaxCapacityMm   float64    `gorm:"type:numeric(10,2);not null;default:0"`
	MaxCapacityLtr  float64    `gorm:"type:numeric(15,2);not null;default:0"`
}

func (TankModel) TableName() string {
	return "tanks"
}

// TransactionModel is one completed sale.
type TransactionModel struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	DispenserID     string    `gorm:"type:varchar(64);not null;index:idx_transactions_nozzle"`
	NozzleID        string    `gorm:"type:varchar(64);not null;index:idx_transactions_nozzle"`
	TransactionTime time.Time `gorm:"type:timestamptz;not null;index"`
	Amount          float64   `gorm:"type:numeric(15,2);not null"`
	Volume          float64   `gorm:"type:numeric(15,2);not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}
