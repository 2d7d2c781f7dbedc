package ingestion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"fuel-station-monitor/internal/diagnostics"
	apperrors "fuel-station-monitor/pkg/errors"
)

type gsmPayload struct {
	GSM *struct {
		Status         flexString `json:"Status"`
		SimInserted    flexString `json:"SimInserted"`
		Registered     flexString `json:"Registered"`
		Cops           flexString `json:"Cops"`
		SignalStrength flexString `json:"SignalStrength"`
		MasterSim      flexString `json:"MasterSim"`
	} `json:"GSM"`
	PdpContext []struct {
		ContextID flexString `json:"ContextId"`
		Apn       flexString `json:"Apn"`
		Ipv4      flexString `json:"Ipv4"`
		IPv4      flexString `json:"IPv4"`
	} `json:"PdpContext"`
	WIFI *struct {
		Status         flexString `json:"Status"`
		Ssid           flexString `json:"Ssid"`
		Ipv4           flexString `json:"Ipv4"`
		IPv4           flexString `json:"IPv4"`
		SignalStrength flexString `json:"SignalStrength"`
	} `json:"WIFI"`
}

func orUnknown(s flexString) string {
	if v := s.String(); v != "" {
		return v
	}
	return diagnostics.Unknown
}

func firstNonEmpty(values ...flexString) flexString {
	for _, v := range values {
		if v.String() != "" {
			return v
		}
	}
	return ""
}

// parseWirelessStatus decodes either a GSM or a WiFi report, whichever key is present.
func parseWirelessStatus(raw string, now time.Time) (diagnostics.Status, error) {
	var p gsmPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, apperrors.NewParseError("wireless_status", raw, "invalid JSON", err)
	}

	switch {
	case p.GSM != nil:
		st := diagnostics.GSMStatus{
			Status:         orUnknown(p.GSM.Status),
			SimInserted:    orUnknown(p.GSM.SimInserted),
			Registered:     orUnknown(p.GSM.Registered),
			Operator:       orUnknown(p.GSM.Cops),
			SignalStrength: orUnknown(p.GSM.SignalStrength),
			MasterSim:      masterSim(p.GSM.MasterSim),
			PDPContexts:    make([]diagnostics.PDPContext, 0, len(p.PdpContext)),
			ReceivedAt:     now,
		}
		for _, c := range p.PdpContext {
			st.PDPContexts = append(st.PDPContexts, diagnostics.PDPContext{
				ContextID: c.ContextID.String(),
				APN:       c.Apn.String(),
				IPv4:      firstNonEmpty(c.Ipv4, c.IPv4).String(),
			})
		}
		return st, nil
	case p.WIFI != nil:
		return diagnostics.WiFiStatus{
			Status:         orUnknown(p.WIFI.Status),
			SSID:           orUnknown(p.WIFI.Ssid),
			IPv4:           orUnknown(firstNonEmpty(p.WIFI.Ipv4, p.WIFI.IPv4)),
			SignalStrength: orUnknown(p.WIFI.SignalStrength),
			ReceivedAt:     now,
		}, nil
	}
	return nil, apperrors.NewParseError("wireless_status", raw, "neither GSM nor WIFI report", nil)
}

func masterSim(v flexString) string {
	switch v.String() {
	case "0":
		return "SIM 1"
	case "1":
		return "SIM 2"
	}
	return diagnostics.Unknown
}

type mqttPayload struct {
	MQTT *struct {
		Started         flexString      `json:"Started"`
		ClientAcquired  flexString      `json:"ClientAcquired"`
		BrokerConnected flexString      `json:"BrokerConnected"`
		Subscribed      json.RawMessage `json:"Subscribed"`
		SubscribedCount flexString      `json:"SubscribedCount"`
	} `json:"MQTT"`
}

func parseMQTTStatus(raw string, now time.Time) (diagnostics.Status, error) {
	var p mqttPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, apperrors.NewParseError("mqtt_status", raw, "invalid JSON", err)
	}
	if p.MQTT == nil {
		return nil, apperrors.NewParseError("mqtt_status", raw, "missing MQTT report", nil)
	}

	st := diagnostics.MQTTStatus{
		Started:         orUnknown(p.MQTT.Started),
		ClientAcquired:  orUnknown(p.MQTT.ClientAcquired),
		BrokerConnected: orUnknown(p.MQTT.BrokerConnected),
		Subscribed:      subscribedTopics(p.MQTT.Subscribed),
		ReceivedAt:      now,
	}
	if n, ok := p.MQTT.SubscribedCount.Int(); ok {
		st.SubscribedCount = n
	} else {
		st.SubscribedCount = len(st.Subscribed)
	}
	return st, nil
}

// subscribedTopics accepts a list of topics or a single comma-separated string.
func subscribedTopics(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s flexString
	if err := json.Unmarshal(raw, &s); err != nil || s.String() == "" {
		return []string{}
	}
	out := []string{}
	for _, part := range strings.Split(s.String(), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type timedStatus struct {
	Status  flexString `json:"Status"`
	StatusL flexString `json:"status"`
	T       flexString `json:"T"`
	DT      flexString `json:"DT"`
	WT      flexString `json:"WT"`
}

func (s timedStatus) text() string {
	return firstNonEmpty(s.Status, s.StatusL).String()
}

// decodeTimed reads {Status, ...} objects and falls back to treating raw as the status text.
func decodeTimed(raw string) timedStatus {
	var s timedStatus
	if strings.HasPrefix(raw, "{") && json.Unmarshal([]byte(raw), &s) == nil {
		return s
	}
	return timedStatus{Status: flexString(raw)}
}

func parsePowerCycle(raw string, now time.Time) diagnostics.Status {
	s := decodeTimed(raw)
	st := diagnostics.PowerCycle{
		Status:     s.text(),
		DieTime:    epochSeconds(s.DT),
		WakeTime:   epochSeconds(s.WT),
		ReceivedAt: now,
	}
	if st.Status == "" {
		st.Status = diagnostics.Unknown
	}
	if st.DieTime != nil && st.WakeTime != nil {
		st.Downtime = st.WakeTime.Sub(*st.DieTime)
	}
	return st
}

func parseConnectionState(raw string, now time.Time) (diagnostics.Status, error) {
	s := decodeTimed(raw)
	text := s.text()
	if text == "" {
		return nil, apperrors.NewParseError("device_status", raw, "missing status", nil)
	}

	at := now
	if t := epochSeconds(s.T); t != nil {
		at = *t
	}
	return diagnostics.ConnectionState{
		Status:     text,
		Medium:     diagnostics.MediumOf(text),
		At:         at,
		ReceivedAt: now,
	}, nil
}

type deviceInfoPayload struct {
	Temperature     flexString `json:"fTemperature"`
	FirmwareVersion flexString `json:"fFirmwareVersion"`
	HardwareVersion flexString `json:"fHardwareVersion"`
	MACAddress      flexString `json:"achMacAddress"`
	SerialNumber    flexString `json:"fSerialNumber"`
	LastDieTime     flexString `json:"lLastDieTime"`
	WakeUpTime      flexString `json:"lWakeUpTime"`
}

func parseDeviceInfo(raw string, now time.Time) (diagnostics.Status, error) {
	var p deviceInfoPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, apperrors.NewParseError("device_info", raw, "invalid JSON", err)
	}

	info := diagnostics.DeviceInfo{
		FirmwareVersion: orUnknown(p.FirmwareVersion),
		HardwareVersion: orUnknown(p.HardwareVersion),
		MACAddress:      orUnknown(p.MACAddress),
		SerialNumber:    orUnknown(p.SerialNumber),
		LastDieTime:     epochSeconds(p.LastDieTime),
		WakeUpTime:      epochSeconds(p.WakeUpTime),
		ReceivedAt:      now,
	}
	if v, ok := p.Temperature.Float(); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		info.Temperature = v
	}
	return info, nil
}

// epochSeconds converts a positive unix-seconds value; zero and garbage yield nil.
func epochSeconds(v flexString) *time.Time {
	n, err := strconv.ParseFloat(v.String(), 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) {
		return nil
	}
	t := time.Unix(int64(n), 0)
	return &t
}

// parseEventTime accepts epoch milliseconds, epoch seconds or RFC3339 text.
func parseEventTime(v flexString) (time.Time, bool) {
	s := v.String()
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		if n >= 1e12 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
