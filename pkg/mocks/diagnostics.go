package mocks

import (
	"context"
	"sync"

	"fuel-station-monitor/internal/diagnostics"
)

var _ diagnostics.Repository = (*MockDiagnosticsRepository)(nil)

// MockDiagnosticsRepository keeps saved history rows per table.
type MockDiagnosticsRepository struct {
	mu            sync.Mutex
	NetworkStatus []diagnostics.Entry
	DeviceInfo    []diagnostics.Entry
	DeviceErrors  []diagnostics.Entry
	Err           error
}

func (m *MockDiagnosticsRepository) SaveNetworkStatus(_ context.Context, e *diagnostics.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.NetworkStatus = append(m.NetworkStatus, *e)
	return nil
}

func (m *MockDiagnosticsRepository) SaveDeviceInfo(_ context.Context, e *diagnostics.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.DeviceInfo = append(m.DeviceInfo, *e)
	return nil
}

func (m *MockDiagnosticsRepository) SaveDeviceError(_ context.Context, e *diagnostics.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.DeviceErrors = append(m.DeviceErrors, *e)
	return nil
}

// Errors returns a copy of the saved device errors.
func (m *MockDiagnosticsRepository) Errors() []diagnostics.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]diagnostics.Entry(nil), m.DeviceErrors...)
}
