package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNozzleColumns_OnlySetFields(t *testing.T) {
	cols := nozzleColumns(station.NozzleUpdate{
		Status:      station.Int(station.NozzleOnline),
		TotalAmount: station.Float(120.5),
	})

	assert.Equal(t, map[string]interface{}{
		"status":       station.NozzleOnline,
		"total_amount": 120.5,
	}, cols)
}

func TestTankColumns_Empty(t *testing.T) {
	assert.Empty(t, tankColumns(station.TankUpdate{}))
}

func TestConnectionColumns(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	up := connectionColumns(true, at)
	assert.Equal(t, true, up["conn_status"])
	assert.Equal(t, at, up["connected_at"])
	assert.NotContains(t, up, "disconnected_at")

	down := connectionColumns(false, at)
	assert.Equal(t, false, down["conn_status"])
	assert.Equal(t, at, down["disconnected_at"])
	assert.NotContains(t, down, "connected_at")
}

func TestToNetworkStatusModel_GSM(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	entry := &diagnostics.Entry{
		DeviceType: station.ClassDispenser,
		Address:    "00012",
		Kind:       diagnostics.KindGSM,
		Payload: diagnostics.GSMStatus{
			Status:         "OK",
			SignalStrength: "23",
			MasterSim:      "SIM 2",
			PDPContexts:    []diagnostics.PDPContext{{ContextID: "1", APN: "internet", IPv4: "10.0.0.7"}},
		},
		ReceivedAt: at,
	}

	m, err := toNetworkStatusModel(entry)
	require.NoError(t, err)

	assert.Equal(t, "GSM", m.ConnectionType)
	assert.Equal(t, "dispenser", m.DeviceType)
	require.NotNil(t, m.MasterSim)
	assert.Equal(t, 2, *m.MasterSim)
	require.NotNil(t, m.APNSSID)
	assert.Equal(t, "internet", *m.APNSSID)
	require.NotNil(t, m.IPv4)
	assert.Equal(t, "10.0.0.7", *m.IPv4)
	assert.Equal(t, at, m.CreatedAt)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(m.Payload, &decoded))
	assert.Equal(t, "OK", decoded["status"])
}

func TestToNetworkStatusModel_UnknownFieldsAreNull(t *testing.T) {
	m, err := toNetworkStatusModel(&diagnostics.Entry{
		DeviceType: station.ClassTank,
		Address:    "00003",
		Payload: diagnostics.WiFiStatus{
			Status:         "OK",
			SSID:           diagnostics.Unknown,
			IPv4:           "",
			SignalStrength: "-60",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "WIFI", m.ConnectionType)
	assert.Nil(t, m.APNSSID)
	assert.Nil(t, m.IPv4)
	assert.Nil(t, m.MasterSim)
	require.NotNil(t, m.SignalStrength)
	assert.Equal(t, "-60", *m.SignalStrength)
}

func TestToNetworkStatusModel_RejectsOtherKinds(t *testing.T) {
	_, err := toNetworkStatusModel(&diagnostics.Entry{
		Payload: diagnostics.DeviceError{Message: "boom"},
	})
	assert.Error(t, err)
}

func TestSimSlot(t *testing.T) {
	assert.Nil(t, simSlot(diagnostics.Unknown))
	require.NotNil(t, simSlot("SIM 1"))
	assert.Equal(t, 1, *simSlot("SIM 1"))
}
