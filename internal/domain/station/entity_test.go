package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "00001", false},
		{"00001", "00001", false},
		{"42", "00042", false},
		{" 7 ", "00007", false},
		{"", "", true},
		{"123456", "", true},
		{"12a", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeAddress(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAddress, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestNozzleID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00001-A1", NozzleID("00001", "A", "1"))
}

func TestNozzleUpdateApply(t *testing.T) {
	t.Parallel()

	n := &Nozzle{Status: NozzleOffline, PricePerLiter: 270}
	upd := NozzleUpdate{Status: Int(NozzleOnline), TotalAmount: Float(1500)}

	assert.False(t, upd.IsEmpty())
	upd.Apply(n)

	assert.True(t, n.Online())
	assert.Equal(t, 270.0, n.PricePerLiter)
	assert.Equal(t, 1500.0, n.TotalAmount)
	assert.True(t, NozzleUpdate{}.IsEmpty())
}

func TestDeviceClassPrefixes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "S", ClassDispenser.TopicPrefix())
	assert.Equal(t, "D", ClassDispenser.ClientPrefix())
	assert.Equal(t, "T", ClassTank.TopicPrefix())
	assert.Equal(t, "T", ClassTank.ClientPrefix())
	assert.False(t, DeviceClass("pump").Valid())
}
