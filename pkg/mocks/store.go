package mocks

import (
	"context"
	"math"
	"sync"
	"time"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

var (
	_ station.DispenserRepository   = (*MockDispenserRepository)(nil)
	_ station.NozzleRepository      = (*MockNozzleRepository)(nil)
	_ station.TankRepository        = (*MockTankRepository)(nil)
	_ station.TransactionRepository = (*MockTransactionRepository)(nil)
)

type MockDispenserRepository struct {
	mu         sync.Mutex
	Dispensers map[string]*station.Dispenser
	Err        error
}

func NewMockDispenserRepository(dispensers ...*station.Dispenser) *MockDispenserRepository {
	m := &MockDispenserRepository{Dispensers: map[string]*station.Dispenser{}}
	for _, d := range dispensers {
		m.Dispensers[d.DispenserID] = d
	}
	return m
}

func (m *MockDispenserRepository) GetByID(_ context.Context, dispenserID string) (*station.Dispenser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	d, ok := m.Dispensers[dispenserID]
	if !ok {
		return nil, apperrors.ErrDispenserNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MockDispenserRepository) GetByAddress(_ context.Context, address string) (*station.Dispenser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, d := range m.Dispensers {
		if d.Address == address {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.ErrDispenserNotFound
}

func (m *MockDispenserRepository) List(_ context.Context) ([]*station.Dispenser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*station.Dispenser, 0, len(m.Dispensers))
	for _, d := range m.Dispensers {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockDispenserRepository) UpdateIRLock(_ context.Context, dispenserID string, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	d, ok := m.Dispensers[dispenserID]
	if !ok {
		return apperrors.ErrDispenserNotFound
	}
	d.IRLockStatus = status
	return nil
}

func (m *MockDispenserRepository) UpdateConnection(_ context.Context, dispenserID string, connected bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	d, ok := m.Dispensers[dispenserID]
	if !ok {
		return apperrors.ErrDispenserNotFound
	}
	d.ConnStatus = connected
	if connected {
		d.ConnectedAt = &at
	} else {
		d.DisconnectedAt = &at
	}
	return nil
}

type MockNozzleRepository struct {
	mu          sync.Mutex
	Nozzles     map[station.NozzleKey]*station.Nozzle
	History     []station.Nozzle
	UpdateCalls int
	Err         error
}

func NewMockNozzleRepository(nozzles ...*station.Nozzle) *MockNozzleRepository {
	m := &MockNozzleRepository{Nozzles: map[station.NozzleKey]*station.Nozzle{}}
	for _, n := range nozzles {
		m.Nozzles[station.NozzleKey{DispenserID: n.DispenserID, NozzleID: n.NozzleID}] = n
	}
	return m
}

// Snapshot returns a copy of the stored nozzle, or nil.
func (m *MockNozzleRepository) Snapshot(dispenserID, nozzleID string) *station.Nozzle {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Nozzles[station.NozzleKey{DispenserID: dispenserID, NozzleID: nozzleID}]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

func (m *MockNozzleRepository) Get(_ context.Context, dispenserID, nozzleID string) (*station.Nozzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	n, ok := m.Nozzles[station.NozzleKey{DispenserID: dispenserID, NozzleID: nozzleID}]
	if !ok {
		return nil, apperrors.ErrNozzleNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MockNozzleRepository) ListByDispenser(_ context.Context, dispenserID string) ([]*station.Nozzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*station.Nozzle
	for k, n := range m.Nozzles {
		if k.DispenserID == dispenserID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockNozzleRepository) Update(_ context.Context, dispenserID, nozzleID string, update station.NozzleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.Err != nil {
		return m.Err
	}
	n, ok := m.Nozzles[station.NozzleKey{DispenserID: dispenserID, NozzleID: nozzleID}]
	if !ok {
		return apperrors.ErrNozzleNotFound
	}
	update.Apply(n)
	n.UpdatedAt = time.Now()
	return nil
}

func (m *MockNozzleRepository) AddSalesToday(_ context.Context, dispenserID, nozzleID string, amount, ceiling float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n, ok := m.Nozzles[station.NozzleKey{DispenserID: dispenserID, NozzleID: nozzleID}]
	if !ok {
		return 0, apperrors.ErrNozzleNotFound
	}
	n.TotalSalesToday = math.Min(n.TotalSalesToday+amount, ceiling)
	return n.TotalSalesToday, nil
}

func (m *MockNozzleRepository) SetOfflineByDispenser(_ context.Context, dispenserID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var affected int64
	for k, n := range m.Nozzles {
		if k.DispenserID == dispenserID {
			n.Status = station.NozzleOffline
			affected++
		}
	}
	return affected, nil
}

func (m *MockNozzleRepository) ResetSalesToday(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for _, n := range m.Nozzles {
		n.TotalSalesToday = 0
	}
	return int64(len(m.Nozzles)), nil
}

func (m *MockNozzleRepository) SetSalesToday(_ context.Context, key station.NozzleKey, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	n, ok := m.Nozzles[key]
	if !ok {
		return apperrors.ErrNozzleNotFound
	}
	n.TotalSalesToday = total
	return nil
}

func (m *MockNozzleRepository) AppendHistory(_ context.Context, nozzle *station.Nozzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.History = append(m.History, *nozzle)
	return nil
}

type tankKey struct {
	tankID  string
	address string
}

type MockTankRepository struct {
	mu          sync.Mutex
	Tanks       map[tankKey]*station.Tank
	UpdateCalls int
	Err         error
}

func NewMockTankRepository(tanks ...*station.Tank) *MockTankRepository {
	m := &MockTankRepository{Tanks: map[tankKey]*station.Tank{}}
	for _, t := range tanks {
		m.Tanks[tankKey{t.TankID, t.Address}] = t
	}
	return m
}

func (m *MockTankRepository) Snapshot(tankID, address string) *station.Tank {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tanks[tankKey{tankID, address}]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

func (m *MockTankRepository) Get(_ context.Context, tankID, address string) (*station.Tank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Tanks[tankKey{tankID, address}]
	if !ok {
		return nil, apperrors.ErrTankNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTankRepository) GetByAddress(_ context.Context, address string) (*station.Tank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for k, t := range m.Tanks {
		if k.address == address {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.ErrTankNotFound
}

func (m *MockTankRepository) List(_ context.Context) ([]*station.Tank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*station.Tank, 0, len(m.Tanks))
	for _, t := range m.Tanks {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockTankRepository) Update(_ context.Context, tankID, address string, update station.TankUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.Err != nil {
		return m.Err
	}
	t, ok := m.Tanks[tankKey{tankID, address}]
	if !ok {
		return apperrors.ErrTankNotFound
	}
	update.Apply(t)
	t.LastUpdated = &at
	return nil
}

func (m *MockTankRepository) UpdateConnection(_ context.Context, tankID, address string, connected bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	t, ok := m.Tanks[tankKey{tankID, address}]
	if !ok {
		return apperrors.ErrTankNotFound
	}
	t.ConnStatus = connected
	if connected {
		t.ConnectedAt = &at
	} else {
		t.DisconnectedAt = &at
		t.Status = station.TankStatusOffline
	}
	return nil
}

type MockTransactionRepository struct {
	mu      sync.Mutex
	Records []station.Transaction
	Err     error
}

func (m *MockTransactionRepository) Create(_ context.Context, tx *station.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, *tx)
	return nil
}

func (m *MockTransactionRepository) SumAmountsByNozzle(_ context.Context, from, to time.Time) (map[station.NozzleKey]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := map[station.NozzleKey]float64{}
	for _, r := range m.Records {
		if r.Time.Before(from) || !r.Time.Before(to) {
			continue
		}
		out[station.NozzleKey{DispenserID: r.DispenserID, NozzleID: r.NozzleID}] += r.Amount
	}
	return out, nil
}

func (m *MockTransactionRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}
