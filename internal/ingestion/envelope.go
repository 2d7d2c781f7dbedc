package ingestion

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	apperrors "fuel-station-monitor/pkg/errors"
)

// flexString accepts a JSON string, number, or bool and keeps its text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

// Int parses the text as an integer, tolerating a float form such as "3.0".
func (f flexString) Int() (int, bool) {
	s := f.String()
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func (f flexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(f.String(), 64)
	return v, err == nil
}

// messageText holds the envelope's message field normalized to text. Objects and
// arrays keep their raw JSON so structured parsers can decode them.
type messageText string

func (m *messageText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*m = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = messageText(s)
	default:
		*m = messageText(data)
	}
	return nil
}

// Envelope is the JSON wrapper every controller publishes.
type Envelope struct {
	DisAddr   flexString  `json:"dis_addr"`
	MsgType   flexString  `json:"msg_type"`
	ReqType   flexString  `json:"req_type"`
	Message   messageText `json:"message"`
	Side      flexString  `json:"side"`
	NozNumber flexString  `json:"noz_number"`
	ATGNumber flexString  `json:"atg_number"`
}

// DecodeEnvelope unmarshals a telemetry payload.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, apperrors.NewParseError("envelope", string(payload), "invalid JSON", err)
	}
	return &env, nil
}

// Text is the message body as text.
func (e *Envelope) Text() string {
	return strings.TrimSpace(string(e.Message))
}

// Side letter of the nozzle: "0"/"A" map to A, "1"/"B" to B.
func (e *Envelope) SideLetter() (string, bool) {
	switch strings.ToUpper(e.Side.String()) {
	case "0", "A":
		return "A", true
	case "1", "B":
		return "B", true
	}
	return "", false
}
