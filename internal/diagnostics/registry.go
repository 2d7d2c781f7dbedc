package diagnostics

import (
	"errors"
	"sort"
	"sync"

	"fuel-station-monitor/internal/domain/station"
)

var (
	ErrUnknownDevice = errors.New("no diagnostics recorded for device")
	ErrUnknownKind   = errors.New("unknown diagnostics kind")
)

const (
	connectionEvents = 8
	powerEvents      = 5
	snapshotHistory  = 5
	errorHistory     = 8
)

// DeviceKey is the client-id form of a device: class letter plus padded address.
func DeviceKey(class station.DeviceClass, address string) string {
	return class.ClientPrefix() + address
}

type deviceState struct {
	gsmConnections  *Ring[ConnectionState]
	wifiConnections *Ring[ConnectionState]
	connections     *Ring[ConnectionState]
	power           *Ring[PowerCycle]
	gsm             *Ring[GSMStatus]
	wifi            *Ring[WiFiStatus]
	mqtt            *Ring[MQTTStatus]
	info            *Ring[DeviceInfo]
	errors          *Ring[DeviceError]
}

func newDeviceState() *deviceState {
	return &deviceState{
		gsmConnections:  NewRing[ConnectionState](connectionEvents),
		wifiConnections: NewRing[ConnectionState](connectionEvents),
		connections:     NewRing[ConnectionState](connectionEvents),
		power:           NewRing[PowerCycle](powerEvents),
		gsm:             NewRing[GSMStatus](snapshotHistory),
		wifi:            NewRing[WiFiStatus](snapshotHistory),
		mqtt:            NewRing[MQTTStatus](snapshotHistory),
		info:            NewRing[DeviceInfo](snapshotHistory),
		errors:          NewRing[DeviceError](errorHistory),
	}
}

// Registry holds bounded per-device diagnostic history in memory.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*deviceState
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*deviceState)}
}

func (r *Registry) state(device string) *deviceState {
	r.mu.RLock()
	st, ok := r.devices[device]
	r.mu.RUnlock()
	if ok {
		return st
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok = r.devices[device]; !ok {
		st = newDeviceState()
		r.devices[device] = st
	}
	return st
}

func (r *Registry) Record(device string, status Status) {
	st := r.state(device)

	switch s := status.(type) {
	case GSMStatus:
		st.gsm.Push(s)
	case WiFiStatus:
		st.wifi.Push(s)
	case MQTTStatus:
		st.mqtt.Push(s)
	case PowerCycle:
		st.power.Push(s)
	case DeviceInfo:
		st.info.Push(s)
	case DeviceError:
		st.errors.Push(s)
	case ConnectionState:
		st.connections.Push(s)
		switch s.Medium {
		case MediumGSM:
			st.gsmConnections.Push(s)
		case MediumWiFi:
			st.wifiConnections.Push(s)
		}
	}
}

// Query returns the retained history of one kind, oldest first.
func (r *Registry) Query(device string, kind Kind) (interface{}, error) {
	r.mu.RLock()
	st, ok := r.devices[device]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownDevice
	}

	switch kind {
	case KindGSMConnection:
		return st.gsmConnections.Items(), nil
	case KindWiFiConnection:
		return st.wifiConnections.Items(), nil
	case KindConnection:
		return st.connections.Items(), nil
	case KindPowerCycle:
		return st.power.Items(), nil
	case KindGSM:
		return st.gsm.Items(), nil
	case KindWiFi:
		return st.wifi.Items(), nil
	case KindMQTT:
		return st.mqtt.Items(), nil
	case KindDeviceInfo:
		return st.info.Items(), nil
	case KindErrors:
		return st.errors.Items(), nil
	}
	return nil, ErrUnknownKind
}

// Devices lists every device with recorded diagnostics.
func (r *Registry) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.devices))
	for k := range r.devices {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
