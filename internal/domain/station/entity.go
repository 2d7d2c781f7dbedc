package station

import (
	"fmt"
	"strings"
	"time"
)

// DeviceClass distinguishes the two kinds of field controllers on the bus.
type DeviceClass string

const (
	ClassDispenser DeviceClass = "dispenser"
	ClassTank      DeviceClass = "tank"
)

// AddressWidth is the fixed width of a bus address.
const AddressWidth = 5

// TopicPrefix is the leading letter of telemetry topics for the class.
func (c DeviceClass) TopicPrefix() string {
	switch c {
	case ClassDispenser:
		return "S"
	case ClassTank:
		return "T"
	}
	return ""
}

// ClientPrefix is the leading letter of the broker client id for the class.
func (c DeviceClass) ClientPrefix() string {
	switch c {
	case ClassDispenser:
		return "D"
	case ClassTank:
		return "T"
	}
	return ""
}

func (c DeviceClass) Valid() bool {
	return c == ClassDispenser || c == ClassTank
}

// NormalizeAddress left-pads a numeric bus address with zeros to AddressWidth digits.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > AddressWidth {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
		}
	}
	return strings.Repeat("0", AddressWidth-len(raw)) + raw, nil
}

// Nozzle status values.
const (
	NozzleOffline = 0
	NozzleOnline  = 1
)

// TankStatusOffline is written when a tank controller drops its broker session.
const TankStatusOffline = -1

type Dispenser struct {
	DispenserID    string
	StationID      string
	Address        string
	ConnStatus     bool
	ConnectedAt    *time.Time
	DisconnectedAt *time.Time
	IRLockStatus   int
}

type Nozzle struct {
	DispenserID      string
	NozzleID         string
	StationID        string
	Product          string
	Status           int
	PricePerLiter    float64
	TotalQuantity    float64
	TotalAmount      float64
	TotalSalesToday  float64
	LockUnlock       int
	KeypadLockStatus int
	Price            float64
	Quantity         float64
	UpdatedAt        time.Time
}

// Online reports whether the last stored status was the online value.
func (n *Nozzle) Online() bool {
	return n.Status == NozzleOnline
}

// NozzleKey identifies a nozzle across dispensers.
type NozzleKey struct {
	DispenserID string
	NozzleID    string
}

func (k NozzleKey) String() string {
	return k.DispenserID + "/" + k.NozzleID
}

// NozzleID composes the nozzle identifier from the dispenser address, side letter and nozzle number.
func NozzleID(dispenserAddress, side, number string) string {
	return fmt.Sprintf("%s-%s%s", dispenserAddress, side, number)
}

// NozzleUpdate carries only the fields a reading changes. Nil fields are left untouched.
type NozzleUpdate struct {
	Status           *int     `json:"status,omitempty"`
	PricePerLiter    *float64 `json:"price_per_liter,omitempty"`
	TotalQuantity    *float64 `json:"total_quantity,omitempty"`
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	LockUnlock       *int     `json:"lock_unlock,omitempty"`
	KeypadLockStatus *int     `json:"keypad_lock_status,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	Quantity         *float64 `json:"quantity,omitempty"`
}

func (u NozzleUpdate) IsEmpty() bool {
	return u.Status == nil && u.PricePerLiter == nil && u.TotalQuantity == nil &&
		u.TotalAmount == nil && u.LockUnlock == nil && u.KeypadLockStatus == nil &&
		u.Price == nil && u.Quantity == nil
}

// Apply copies the set fields onto n.
func (u NozzleUpdate) Apply(n *Nozzle) {
	if u.Status != nil {
		n.Status = *u.Status
	}
	if u.PricePerLiter != nil {
		n.PricePerLiter = *u.PricePerLiter
	}
	if u.TotalQuantity != nil {
		n.TotalQuantity = *u.TotalQuantity
	}
	if u.TotalAmount != nil {
		n.TotalAmount = *u.TotalAmount
	}
	if u.LockUnlock != nil {
		n.LockUnlock = *u.LockUnlock
	}
	if u.KeypadLockStatus != nil {
		n.KeypadLockStatus = *u.KeypadLockStatus
	}
	if u.Price != nil {
		n.Price = *u.Price
	}
	if u.Quantity != nil {
		n.Quantity = *u.Quantity
	}
}

type Tank struct {
	TankID          string
	Address         string
	StationID       string
	Product         string
	Status          int
	ProductLevelMm  float64
	ProductLevelLtr float64
	WaterLevelMm    float64
	WaterLevelLtr   float64
	Temperature     float64
	ConnStatus      bool
	ConnectedAt     *time.Time
	DisconnectedAt  *time.Time
	LastUpdated     *time.Time
	DipChartPath    string
	MaxCapacityMm   float64
	MaxCapacityLtr  float64
}

// TankUpdate carries only the fields a reading changes.
type TankUpdate struct {
	Status          *int     `json:"status,omitempty"`
	ProductLevelMm  *float64 `json:"product_level_mm,omitempty"`
	ProductLevelLtr *float64 `json:"product_level_ltr,omitempty"`
	WaterLevelMm    *float64 `json:"water_level_mm,omitempty"`
	WaterLevelLtr   *float64 `json:"water_level_ltr,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

func (u TankUpdate) Apply(t *Tank) {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.ProductLevelMm != nil {
		t.ProductLevelMm = *u.ProductLevelMm
	}
	if u.ProductLevelLtr != nil {
		t.ProductLevelLtr = *u.ProductLevelLtr
	}
	if u.WaterLevelMm != nil {
		t.WaterLevelMm = *u.WaterLevelMm
	}
	if u.WaterLevelLtr != nil {
		t.WaterLevelLtr = *u.WaterLevelLtr
	}
	if u.Temperature != nil {
		t.Temperature = *u.Temperature
	}
}

// Transaction is one completed fueling event reported by a nozzle.
type Transaction struct {
	DispenserID string    `json:"dispenser_id,omitempty"`
	NozzleID    string    `json:"nozzle_id,omitempty"`
	Time        time.Time `json:"time"`
	Amount      float64   `json:"amount"`
	Volume      float64   `json:"volume"`
}

// ConnectionEvent is a broker-side notice that a controller session opened or closed.
type ConnectionEvent struct {
	Class     DeviceClass
	Address   string
	ClientID  string
	Connected bool
	At        time.Time
}

func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }
