package ledserial

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingPacket_roundTrip(t *testing.T) {
	packets := []IncomingPacket{
		InitializePacket{SampleIntervalMs: 5},
		ClearPacket{},
		SetLevelPacket{Duty: MaxDuty},
		SetLevelPacket{Duty: 0},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteIncomingPacket(&buf, p))
	}

	for _, want := range packets {
		got, err := ReadIncomingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, buf.Len())
}

func TestOutgoingPacket_roundTrip(t *testing.T) {
	packets := []OutgoingPacket{
		SamplePacket{Value: 32768},
		AckPacket{IncomingPacketType: TypeSetLevelPacket},
		LogPacket{Message: "adc ready"},
		ErrorPacket{Message: "bad packet"},
		PanicPacket{},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteOutgoingPacket(&buf, p))
	}

	for _, want := range packets {
		got, err := ReadOutgoingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSetLevelPacket_wireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, SetLevelPacket{Duty: 0x1234}))

	b := buf.Bytes()
	require.Len(t, b, 1+2+4)
	assert.Equal(t, byte(TypeSetLevelPacket), b[0])
	assert.Equal(t, []byte{0x34, 0x12}, b[1:3])
}

func TestReadOutgoingPacket_checksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutgoingPacket(&buf, SamplePacket{Value: 42}))

	b := buf.Bytes()
	b[1] ^= 0xFF

	_, err := ReadOutgoingPacket(bytes.NewReader(b))
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestReadIncomingPacket_unknownType(t *testing.T) {
	_, err := ReadIncomingPacket(bytes.NewReader([]byte{0x7F}))
	assert.ErrorContains(t, err, "IncomingPacketType(127)")
}
