package models

import (
	"time"

	"gorm.io/datatypes"
)

// NetworkStatusModel is the history of link reports (GSM, WiFi, MQTT, power cycles).
type NetworkStatusModel struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	DeviceType     string         `gorm:"type:varchar(16);not null;index:idx_network_status_device"`
	Address        string         `gorm:"type:varchar(5);not null;index:idx_network_status_device"`
	ConnectionType string         `gorm:"type:varchar(16);not null"`
	APNSSID        *string        `gorm:"column:apn_ssid;type:varchar(128)"`
	IPv4           *string        `gorm:"column:ipv4;type:varchar(64)"`
	SignalStrength *string        `gorm:"type:varchar(32)"`
	MasterSim      *int           `gorm:"type:integer"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"not null;index"`
}

func (NetworkStatusModel) TableName() string {
	return "network_status"
}

type DeviceInfoModel struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement"`
	DeviceType      string         `gorm:"type:varchar(16);not null;index:idx_device_info_device"`
	Address         string         `gorm:"type:varchar(5);not null;index:idx_device_info_device"`
	Temperature     float64        `gorm:"type:numeric(6,2)"`
	FirmwareVersion string         `gorm:"type:varchar(64)"`
	HardwareVersion string         `gorm:"type:varchar(64)"`
	MACAddress      string         `gorm:"column:mac_address;type:varchar(32)"`
	SerialNumber    string         `gorm:"type:varchar(64)"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"not null;index"`
}

func (DeviceInfoModel) TableName() string {
	return "device_info"
}

type DeviceErrorModel struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement"`
	DeviceType   string         `gorm:"type:varchar(16);not null;index:idx_device_errors_device"`
	Address      string         `gorm:"type:varchar(5);not null;index:idx_device_errors_device"`
	ErrorMessage string         `gorm:"type:text;not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

func (DeviceErrorModel) TableName() string {
	return "device_errors"
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&DispenserModel{},
		&NozzleModel{},
		&NozzleHistoryModel{},
		&TankModel{},
		&TransactionModel{},
		&NetworkStatusModel{},
		&DeviceInfoModel{},
		&DeviceErrorModel{},
	}
}
