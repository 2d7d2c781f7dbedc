package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/infrastructure/database/postgres/models"

	"gorm.io/datatypes"
)

// DiagnosticsRepository appends controller diagnostics to history tables.
type DiagnosticsRepository struct {
	db *DB
}

func NewDiagnosticsRepository(db *DB) *DiagnosticsRepository {
	return &DiagnosticsRepository{db: db}
}

func (r *DiagnosticsRepository) SaveNetworkStatus(ctx context.Context, entry *diagnostics.Entry) error {
	dbModel, err := toNetworkStatusModel(entry)
	if err != nil {
		return err
	}
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to save network status: %w", err)
	}
	return nil
}

func (r *DiagnosticsRepository) SaveDeviceInfo(ctx context.Context, entry *diagnostics.Entry) error {
	info, ok := entry.Payload.(diagnostics.DeviceInfo)
	if !ok {
		return fmt.Errorf("device info entry carries %T", entry.Payload)
	}
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return err
	}

	dbModel := &models.DeviceInfoModel{
		DeviceType:      string(entry.DeviceType),
		Address:         entry.Address,
		Temperature:     info.Temperature,
		FirmwareVersion: info.FirmwareVersion,
		HardwareVersion: info.HardwareVersion,
		MACAddress:      info.MACAddress,
		SerialNumber:    info.SerialNumber,
		Payload:         payload,
		CreatedAt:       entry.ReceivedAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to save device info: %w", err)
	}
	return nil
}

func (r *DiagnosticsRepository) SaveDeviceError(ctx context.Context, entry *diagnostics.Entry) error {
	report, ok := entry.Payload.(diagnostics.DeviceError)
	if !ok {
		return fmt.Errorf("device error entry carries %T", entry.Payload)
	}
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return err
	}

	dbModel := &models.DeviceErrorModel{
		DeviceType:   string(entry.DeviceType),
		Address:      entry.Address,
		ErrorMessage: report.Message,
		Payload:      payload,
		CreatedAt:    entry.ReceivedAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to save device error: %w", err)
	}
	return nil
}

func marshalPayload(status diagnostics.Status) (datatypes.JSON, error) {
	raw, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", status.Kind(), err)
	}
	return datatypes.JSON(raw), nil
}

func toNetworkStatusModel(entry *diagnostics.Entry) (*models.NetworkStatusModel, error) {
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return nil, err
	}

	m := &models.NetworkStatusModel{
		DeviceType: string(entry.DeviceType),
		Address:    entry.Address,
		Payload:    payload,
		CreatedAt:  entry.ReceivedAt,
	}

	switch s := entry.Payload.(type) {
	case diagnostics.GSMStatus:
		m.ConnectionType = "GSM"
		m.SignalStrength = optional(s.SignalStrength)
		m.MasterSim = simSlot(s.MasterSim)
		if len(s.PDPContexts) > 0 {
			m.APNSSID = optional(s.PDPContexts[0].APN)
			m.IPv4 = optional(s.PDPContexts[0].IPv4)
		}
	case diagnostics.WiFiStatus:
		m.ConnectionType = "WIFI"
		m.APNSSID = optional(s.SSID)
		m.IPv4 = optional(s.IPv4)
		m.SignalStrength = optional(s.SignalStrength)
	case diagnostics.MQTTStatus:
		m.ConnectionType = "MQTT"
	case diagnostics.PowerCycle:
		m.ConnectionType = "POWER"
	default:
		return nil, fmt.Errorf("%s is not a network status", entry.Payload.Kind())
	}
	return m, nil
}

func optional(s string) *string {
	if s == "" || s == diagnostics.Unknown {
		return nil
	}
	return &s
}

// simSlot maps the reported active SIM label back to its slot number.
func simSlot(label string) *int {
	var slot int
	switch label {
	case "SIM 1":
		slot = 1
	case "SIM 2":
		slot = 2
	default:
		return nil
	}
	return &slot
}
