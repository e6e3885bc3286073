package beast

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeModeS_ShortFrame(t *testing.T) {
	data := []byte{0x28, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	out := EncodeModeS(0x0102030405, 0x80, data)

	assert.Equal(t, byte(SyncByte), out[0])
	assert.Equal(t, byte(ModeS), out[1])
}

func TestEncodeModeS_LongFrame(t *testing.T) {
	data := make([]byte, 14)
	for i := range data {
		data[i] = byte(i)
	}
	out := EncodeModeS(1, 0, data)

	assert.Equal(t, byte(SyncByte), out[0])
	assert.Equal(t, byte(ModeSLong), out[1])
}

func TestEncodeModeS_EscapesSyncByte(t *testing.T) {
	data := []byte{SyncByte, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	out := EncodeModeS(0, SyncByte, data)

	count := 0
	for _, b := range out {
		if b == SyncByte {
			count++
		}
	}
	// one leading sync, plus the doubled signal byte and doubled data byte
	assert.Equal(t, 5, count)
}

func TestEncodeModeS_RoundTripsThroughDecoder(t *testing.T) {
	data := []byte{0x8D, 0x48, 0x44, 0x12, 0x58, 0x9F, 0x48, 0xA3, 0xC4, 0x7E, 0x30, 0x34, 0x56, 0x78}
	encoded := EncodeModeS(123456789, 200, data)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	dec := NewDecoder(logger)

	msgs, err := dec.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, byte(ModeSLong), msgs[0].MessageType)
	assert.Equal(t, byte(200), msgs[0].Signal)
	assert.Equal(t, data, msgs[0].Data)
}

func TestEncodeModeAC(t *testing.T) {
	out := EncodeModeAC(42, 10, [2]byte{0x12, 0x34})
	assert.Equal(t, byte(SyncByte), out[0])
	assert.Equal(t, byte(ModeAC), out[1])
}

func TestTimestampBytes(t *testing.T) {
	b := timestampBytes(0x0102030405AB)
	assert.Equal(t, [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0xAB}, b)
}

func TestEscape(t *testing.T) {
	in := []byte{0x01, SyncByte, 0x02}
	out := escape(in)
	assert.Equal(t, []byte{0x01, SyncByte, SyncByte, 0x02}, out)
}
