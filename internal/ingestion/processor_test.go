package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/connectivity"
	"fuel-station-monitor/internal/dedup"
	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/notify"
	"fuel-station-monitor/internal/reconciler"
	apperrors "fuel-station-monitor/pkg/errors"
	"fuel-station-monitor/pkg/mocks"
)

type processorFixture struct {
	proc         *Processor
	dispensers   *mocks.MockDispenserRepository
	nozzles      *mocks.MockNozzleRepository
	tanks        *mocks.MockTankRepository
	transactions *mocks.MockTransactionRepository
	history      *mocks.MockDiagnosticsRepository
	registry     *diagnostics.Registry
	notes        *notify.Recorder
}

func newProcessorFixture(t *testing.T, cfg ProcessorConfig) *processorFixture {
	t.Helper()

	f := &processorFixture{
		dispensers: mocks.NewMockDispenserRepository(&station.Dispenser{DispenserID: "DSP-1", Address: "00001", ConnStatus: true}),
		nozzles: mocks.NewMockNozzleRepository(
			&station.Nozzle{DispenserID: "DSP-1", NozzleID: "D00001-A1", Status: station.NozzleOnline},
			&station.Nozzle{DispenserID: "DSP-1", NozzleID: "D00001-B1", Status: station.NozzleOnline},
		),
		tanks:        mocks.NewMockTankRepository(&station.Tank{TankID: "1", Address: "00002", MaxCapacityMm: 3000}),
		transactions: &mocks.MockTransactionRepository{},
		history:      &mocks.MockDiagnosticsRepository{},
		registry:     diagnostics.NewRegistry(),
		notes:        notify.NewRecorder(16),
	}

	rec := reconciler.New(reconciler.Dependencies{
		Dispensers:   f.dispensers,
		Nozzles:      f.nozzles,
		Tanks:        f.tanks,
		Transactions: f.transactions,
		Dedup:        dedup.NewWindow(5 * time.Second),
	}, reconciler.DefaultThresholds(), zap.NewNop())

	if cfg.ConnPrefix == "" {
		cfg.ConnPrefix = "duc/conn_status"
	}
	f.proc = NewProcessor(cfg, ProcessorDeps{
		State:        rec,
		Dispensers:   f.dispensers,
		Connectivity: connectivity.NewHandler(f.dispensers, f.nozzles, f.tanks, f.notes, zap.NewNop()),
		Diagnostics:  diagnostics.NewService(f.registry, f.history, f.notes, zap.NewNop()),
	}, zap.NewNop())
	return f
}

func dropped(p *Processor, reason string) float64 {
	return testutil.ToFloat64(p.collector.dropped.WithLabelValues(reason))
}

func TestProcessorAppliesNozzleField(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})
	ctx := context.Background()

	payload := []byte(`{"dis_addr":"D00001","msg_type":1,"req_type":0,"message":"350.555","side":"0","noz_number":1}`)
	require.NoError(t, f.proc.HandleMessage(ctx, "S00001", payload))

	n := f.nozzles.Snapshot("DSP-1", "D00001-A1")
	assert.InDelta(t, 350.56, n.PricePerLiter, 1e-9)

	// identical reading inside the window is suppressed, not an error
	require.NoError(t, f.proc.HandleMessage(ctx, "S00001", payload))
	assert.Equal(t, int64(1), f.proc.Metrics().Snapshot().Suppressed)
	assert.Equal(t, float64(1), dropped(f.proc, ReasonDuplicate))
	assert.Equal(t, int64(2), f.proc.Metrics().Snapshot().MessagesProcessed)
}

func TestProcessorAppliesDispenserLock(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	err := f.proc.HandleMessage(context.Background(), "S00001", []byte(`{"msg_type":6,"req_type":0,"message":"1"}`))
	require.NoError(t, err)

	d, err := f.dispensers.GetByID(context.Background(), "DSP-1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.IRLockStatus)
}

func TestProcessorDropsMalformedMessages(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})
	ctx := context.Background()

	cases := []struct {
		topic   string
		payload string
	}{
		{"S00001", `not json`},
		{"S00001", `{"msg_type":1,"req_type":1,"message":"5"}`},
		{"S00001", `{"msg_type":1,"req_type":0,"message":"abc","side":"0","noz_number":1}`},
		{"S00001", `{"msg_type":1,"req_type":0,"message":"5","side":"Z","noz_number":1}`},
		{"T00002", `{"msg_type":1,"req_type":0,"message":"500"}`},
		{"X00001", `{}`},
	}
	for _, tc := range cases {
		err := f.proc.HandleMessage(ctx, tc.topic, []byte(tc.payload))
		assert.ErrorIs(t, err, apperrors.ErrParse, tc.payload)
	}

	assert.Equal(t, float64(len(cases)), dropped(f.proc, ReasonParse))
	assert.Equal(t, int64(len(cases)), f.proc.Metrics().Snapshot().MessagesDropped)
}

func TestProcessorUnknownDispenser(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	err := f.proc.HandleMessage(context.Background(), "S00009", []byte(`{"msg_type":0,"req_type":0,"message":"1","side":"0","noz_number":1}`))
	assert.ErrorIs(t, err, apperrors.ErrDispenserNotFound)
	assert.Equal(t, float64(1), dropped(f.proc, ReasonUnknown))
}

func TestProcessorRejectsImplausibleTankLevel(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	err := f.proc.HandleMessage(context.Background(), "T00002", []byte(`{"msg_type":1,"req_type":0,"message":"90","atg_number":1}`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	tank := f.tanks.Snapshot("1", "00002")
	assert.Zero(t, tank.ProductLevelMm)
	assert.Equal(t, int64(1), f.proc.Metrics().Snapshot().Rejected)
	assert.Equal(t, float64(1), dropped(f.proc, ReasonValidation))
}

func TestProcessorAppliesTankReadings(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})
	ctx := context.Background()

	require.NoError(t, f.proc.HandleMessage(ctx, "T00002", []byte(`{"msg_type":1,"req_type":0,"message":1500.5,"atg_number":"1"}`)))
	require.NoError(t, f.proc.HandleMessage(ctx, "T00002", []byte(`{"msg_type":4,"req_type":0,"message":"27.5","atg_number":1}`)))

	tank := f.tanks.Snapshot("1", "00002")
	assert.InDelta(t, 1500.5, tank.ProductLevelMm, 1e-9)
	assert.InDelta(t, 27.5, tank.Temperature, 1e-9)
}

func TestProcessorAppliesTransactionBatch(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	payload := []byte(`{"dis_addr":"D00001","msg_type":7,"req_type":0,"message":"{1717200000,10,2}{oops}{1717200060,15,3}","side":"1","noz_number":1}`)
	require.NoError(t, f.proc.HandleMessage(context.Background(), "S00001", payload))

	n := f.nozzles.Snapshot("DSP-1", "D00001-B1")
	assert.InDelta(t, 15, n.Price, 1e-9)
	assert.InDelta(t, 3, n.Quantity, 1e-9)
	assert.InDelta(t, 25, n.TotalSalesToday, 1e-9)
	assert.Equal(t, 2, f.transactions.Count())
}

func TestProcessorConnectionAlertForcesNozzlesOffline(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	payload := []byte(`{"clientid":"D00001","status":"Disconnected","disconnected_at":"2024-06-01T08:00:00Z"}`)
	require.NoError(t, f.proc.HandleMessage(context.Background(), "duc/conn_status/D00001", payload))

	d, err := f.dispensers.GetByID(context.Background(), "DSP-1")
	require.NoError(t, err)
	assert.False(t, d.ConnStatus)
	require.NotNil(t, d.DisconnectedAt)
	assert.True(t, at.Equal(*d.DisconnectedAt))

	for _, id := range []string{"D00001-A1", "D00001-B1"} {
		assert.Equal(t, station.NozzleOffline, f.nozzles.Snapshot("DSP-1", id).Status, id)
	}

	notes := f.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelError, notes[0].NotificationType)
}

func TestProcessorRecordsDiagnostics(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})
	ctx := context.Background()

	require.NoError(t, f.proc.HandleMessage(ctx, "S00001", []byte(`{"msg_type":8,"req_type":0,"message":"E42 pulser fault"}`)))
	require.NoError(t, f.proc.HandleMessage(ctx, "T00002", []byte(`{"msg_type":5,"req_type":0,"message":{"WIFI":{"Status":"UP","Ssid":"fsm"}}}`)))

	errs := f.history.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "00001", errs[0].Address)
	assert.Len(t, f.history.NetworkStatus, 1)

	got, err := f.registry.Query("T00002", diagnostics.KindWiFi)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestProcessorUnhandledTypeIsNotAnError(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 8})

	require.NoError(t, f.proc.HandleMessage(context.Background(), "S00001", []byte(`{"msg_type":42,"req_type":0,"message":"x"}`)))
	assert.Equal(t, int64(1), f.proc.Metrics().Snapshot().Unhandled)
	assert.Equal(t, float64(1), dropped(f.proc, ReasonUnhandled))
}

func TestProcessorWorkersDrainOnStop(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 4, BufferSize: 64})
	f.proc.Start()

	f.proc.Enqueue("S00001", []byte(`{"msg_type":2,"req_type":0,"message":"100","side":"0","noz_number":1}`))
	f.proc.Enqueue("S00001", []byte(`{"msg_type":2,"req_type":0,"message":"101","side":"0","noz_number":1}`))
	f.proc.Enqueue("T00002", []byte(`{"msg_type":2,"req_type":0,"message":"60","atg_number":1}`))
	f.proc.Stop()

	// same topic, same worker: the later reading wins
	assert.InDelta(t, 101, f.nozzles.Snapshot("DSP-1", "D00001-A1").TotalQuantity, 1e-9)
	assert.InDelta(t, 60, f.tanks.Snapshot("1", "00002").WaterLevelMm, 1e-9)
	assert.Equal(t, int64(3), f.proc.Metrics().Snapshot().MessagesProcessed)

	// stopped processors ignore new messages
	f.proc.Enqueue("S00001", []byte(`{}`))
	assert.Equal(t, int64(3), f.proc.Metrics().Snapshot().MessagesReceived)
}

func TestProcessorDropsWhenBufferFull(t *testing.T) {
	f := newProcessorFixture(t, ProcessorConfig{Workers: 1, BufferSize: 1})

	f.proc.Enqueue("S00001", []byte(`{}`))
	f.proc.Enqueue("S00001", []byte(`{}`))

	m := f.proc.Metrics().Snapshot()
	assert.Equal(t, int64(2), m.MessagesReceived)
	assert.Equal(t, int64(1), m.MessagesDropped)
	assert.Equal(t, 1, m.BufferSize)
	assert.Equal(t, float64(1), dropped(f.proc, ReasonBufferFull))
}
