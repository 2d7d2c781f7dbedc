package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	scheme := NewTopicScheme("duc/conn_status")

	tests := []struct {
		topic string
		want  Route
	}{
		{"S00001", Route{Kind: RouteTelemetry, Class: station.ClassDispenser, Address: "00001"}},
		{"S42", Route{Kind: RouteTelemetry, Class: station.ClassDispenser, Address: "00042"}},
		{"T00007", Route{Kind: RouteTelemetry, Class: station.ClassTank, Address: "00007"}},
		{"duc/conn_status/D00001", Route{Kind: RouteConnection, Class: station.ClassDispenser, Address: "00001", ClientID: "D00001"}},
		{"duc/conn_status/T12", Route{Kind: RouteConnection, Class: station.ClassTank, Address: "00012", ClientID: "T00012"}},
	}

	for _, tt := range tests {
		got, err := scheme.Classify(tt.topic)
		require.NoError(t, err, tt.topic)
		assert.Equal(t, tt.want, got, tt.topic)
	}
}

func TestClassifyRejectsMalformedTopics(t *testing.T) {
	t.Parallel()
	scheme := NewTopicScheme("duc/conn_status/")

	for _, topic := range []string{"", "S", "X00001", "S12345678", "Sabc", "duc/conn_status/Q00001", "duc/conn_status/"} {
		_, err := scheme.Classify(topic)
		assert.ErrorIs(t, err, apperrors.ErrParse, topic)
	}
}

func TestTopicBuilders(t *testing.T) {
	t.Parallel()
	scheme := NewTopicScheme("duc/conn_status")

	topic, err := scheme.TelemetryTopic(station.ClassDispenser, "7")
	require.NoError(t, err)
	assert.Equal(t, "S00007", topic)

	topic, err = scheme.ConnectionTopic(station.ClassTank, "00003")
	require.NoError(t, err)
	assert.Equal(t, "duc/conn_status/T00003", topic)

	_, err = scheme.TelemetryTopic("pump", "1")
	assert.ErrorIs(t, err, station.ErrUnknownClass)

	_, err = scheme.ConnectionTopic(station.ClassTank, "x1")
	assert.ErrorIs(t, err, station.ErrInvalidAddress)
}

func TestEnvelopeNormalizesFields(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"dis_addr":"D55225","msg_type":"1","req_type":0,"message":12.5,"side":"1","noz_number":2}`))
	require.NoError(t, err)

	msgType, err := ValidateEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, 1, msgType)
	assert.Equal(t, "12.5", env.Text())

	nozzleID, err := env.NozzleRef("55225")
	require.NoError(t, err)
	assert.Equal(t, "D55225-B2", nozzleID)
}

func TestEnvelopeDefaultsDispenserAddress(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"msg_type":0,"req_type":0,"message":"1","side":"A","noz_number":"1"}`))
	require.NoError(t, err)

	nozzleID, err := env.NozzleRef("00001")
	require.NoError(t, err)
	assert.Equal(t, "D00001-A1", nozzleID)
}

func TestEnvelopeKeepsObjectMessages(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"msg_type":16,"req_type":0,"message":{"fTemperature":30}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"fTemperature":30}`, env.Text())
}

func TestValidateEnvelope(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing req_type": `{"msg_type":1,"message":"1"}`,
		"request message":  `{"msg_type":1,"req_type":1,"message":"1"}`,
		"missing msg_type": `{"req_type":0,"message":"1"}`,
		"empty message":    `{"msg_type":1,"req_type":0,"message":""}`,
		"null message":     `{"msg_type":1,"req_type":0,"message":null}`,
	}
	for name, payload := range cases {
		env, err := DecodeEnvelope([]byte(payload))
		require.NoError(t, err, name)
		_, err = ValidateEnvelope(env)
		assert.ErrorIs(t, err, apperrors.ErrParse, name)
	}
}

func TestEnvelopeIdentifiers(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"side":"C","noz_number":"x","atg_number":3}`))
	require.NoError(t, err)

	_, err = env.NozzleRef("00001")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	tankID, err := env.TankID()
	require.NoError(t, err)
	assert.Equal(t, "3", tankID)

	env, err = DecodeEnvelope([]byte(`{}`))
	require.NoError(t, err)
	_, err = env.TankID()
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseClientID(t *testing.T) {
	t.Parallel()

	class, addr, err := ParseClientID("D55225")
	require.NoError(t, err)
	assert.Equal(t, station.ClassDispenser, class)
	assert.Equal(t, "55225", addr)

	_, _, err = ParseClientID("ATG1")
	assert.ErrorIs(t, err, apperrors.ErrParse)
}
