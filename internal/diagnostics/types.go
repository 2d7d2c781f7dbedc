package diagnostics

import (
	"strings"
	"time"
)

// Unknown fills status fields a device did not report.
const Unknown = "Unknown"

type Kind string

const (
	KindGSM            Kind = "gsm"
	KindWiFi           Kind = "wifi"
	KindMQTT           Kind = "mqtt"
	KindPowerCycle     Kind = "power"
	KindConnection     Kind = "connection"
	KindDeviceInfo     Kind = "device-info"
	KindGSMConnection  Kind = "gsm-connection"
	KindWiFiConnection Kind = "wifi-connection"
	KindErrors         Kind = "errors"
)

// Status is any structured diagnostic report a controller publishes.
type Status interface {
	Kind() Kind
}

type PDPContext struct {
	ContextID string `json:"context_id"`
	APN       string `json:"apn"`
	IPv4      string `json:"ipv4"`
}

type GSMStatus struct {
	Status         string       `json:"status"`
	SimInserted    string       `json:"sim_inserted"`
	Registered     string       `json:"registered"`
	Operator       string       `json:"operator"`
	SignalStrength string       `json:"signal_strength"`
	MasterSim      string       `json:"master_sim"`
	PDPContexts    []PDPContext `json:"pdp_contexts"`
	ReceivedAt     time.Time    `json:"received_at"`
}

func (GSMStatus) Kind() Kind { return KindGSM }

type WiFiStatus struct {
	Status         string    `json:"status"`
	SSID           string    `json:"ssid"`
	IPv4           string    `json:"ipv4"`
	SignalStrength string    `json:"signal_strength"`
	ReceivedAt     time.Time `json:"received_at"`
}

func (WiFiStatus) Kind() Kind { return KindWiFi }

type MQTTStatus struct {
	Started         string    `json:"started"`
	ClientAcquired  string    `json:"client_acquired"`
	BrokerConnected string    `json:"broker_connected"`
	Subscribed      []string  `json:"subscribed"`
	SubscribedCount int       `json:"subscribed_count"`
	ReceivedAt      time.Time `json:"received_at"`
}

func (MQTTStatus) Kind() Kind { return KindMQTT }

// PowerCycle reports a controller reset with the time it went down and woke up.
type PowerCycle struct {
	Status     string        `json:"status"`
	DieTime    *time.Time    `json:"die_time,omitempty"`
	WakeTime   *time.Time    `json:"wake_time,omitempty"`
	Downtime   time.Duration `json:"downtime"`
	ReceivedAt time.Time     `json:"received_at"`
}

func (PowerCycle) Kind() Kind { return KindPowerCycle }

// Medium classifies the link a connection-status text refers to.
type Medium string

const (
	MediumGSM   Medium = "gsm"
	MediumWiFi  Medium = "wifi"
	MediumOther Medium = "other"
)

type ConnectionState struct {
	Status     string    `json:"status"`
	Medium     Medium    `json:"medium"`
	At         time.Time `json:"at"`
	ReceivedAt time.Time `json:"received_at"`
}

func (ConnectionState) Kind() Kind { return KindConnection }

// Connected reports whether the status text announces an established link.
func (c ConnectionState) Connected() bool {
	s := strings.ToUpper(c.Status)
	return strings.HasSuffix(s, "_CONNECTED")
}

// Disconnected reports whether the status text announces a lost link.
func (c ConnectionState) Disconnected() bool {
	return strings.HasSuffix(strings.ToUpper(c.Status), "_DISCONNECTED")
}

// MediumOf derives the link medium from a connection-status text.
func MediumOf(status string) Medium {
	s := strings.ToUpper(status)
	switch {
	case strings.Contains(s, "GSM_"), strings.Contains(s, "GPRS_"):
		return MediumGSM
	case strings.Contains(s, "WIFI_"):
		return MediumWiFi
	}
	return MediumOther
}

type DeviceInfo struct {
	Temperature     float64    `json:"temperature"`
	FirmwareVersion string     `json:"firmware_version"`
	HardwareVersion string     `json:"hardware_version"`
	MACAddress      string     `json:"mac_address"`
	SerialNumber    string     `json:"serial_number"`
	LastDieTime     *time.Time `json:"last_die_time,omitempty"`
	WakeUpTime      *time.Time `json:"wake_up_time,omitempty"`
	ReceivedAt      time.Time  `json:"received_at"`
}

func (DeviceInfo) Kind() Kind { return KindDeviceInfo }

// DeviceError is a free-text fault reported by a controller.
type DeviceError struct {
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

func (DeviceError) Kind() Kind { return KindErrors }
