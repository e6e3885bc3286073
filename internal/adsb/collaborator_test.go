package adsb

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go1090/internal/demod"
)

// validDF11Frame builds a 56-bit DF11 frame with a correct CRC-24
// checksum appended, for exercising the happy path without a capture.
func validDF11Frame() []byte {
	payload := []byte{0x58, 0x00, 0x00, 0x00}
	crc := CalculateCRC(payload)
	return append(payload, byte(crc>>16), byte(crc>>8), byte(crc))
}

func TestCollaborator_ScoreMessage_AcceptsValidCRC(t *testing.T) {
	c := NewCollaborator(logrus.New(), nil)
	score := c.ScoreMessage(validDF11Frame(), 11)
	assert.GreaterOrEqual(t, score, 0)
}

func TestCollaborator_ScoreMessage_RejectsBadCRC(t *testing.T) {
	c := NewCollaborator(logrus.New(), nil)
	frame := validDF11Frame()
	frame[3] ^= 0xFF // stomp a data byte without fixing the CRC
	score := c.ScoreMessage(frame, 11)
	assert.Equal(t, -1, score)
}

func TestCollaborator_DecodeMessage_DeliversToSink(t *testing.T) {
	var delivered *DecodedMessage
	c := NewCollaborator(logrus.New(), func(m *DecodedMessage) { delivered = m })

	frame := validDF11Frame()
	msg, err := c.DecodeMessage(frame, 11, demod.Meta{Timestamp12MHz: 42})
	require.NoError(t, err)

	c.UseMessage(msg)
	require.NotNil(t, delivered)
	assert.Equal(t, uint64(42), delivered.Timestamp12MHz)
	assert.Equal(t, 11, delivered.DF)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
}

func TestCollaborator_DecodeMessage_ErrorsOnBadCRC(t *testing.T) {
	c := NewCollaborator(logrus.New(), nil)
	frame := validDF11Frame()
	frame[3] ^= 0xFF
	_, err := c.DecodeMessage(frame, 11, demod.Meta{})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), c.Stats().DecodeErrors)
}

func TestExtractCallsign_RejectsGarbage(t *testing.T) {
	data := make([]byte, 14)
	for i := range data {
		data[i] = 0xFF
	}
	assert.Equal(t, "", ExtractCallsign(data))
}

func TestExtractAltitude_QBitEncoding(t *testing.T) {
	data := make([]byte, 14)
	data[0] = 17 << 3
	// AC12 field = 0x1F: Q-bit (bit4) set, N low bits = 0x0F -> N=15,
	// altitude = 15*25 - 1000 = -625ft.
	data[5] = 0x01
	data[6] = 0xF0
	assert.Equal(t, -625, ExtractAltitude(data))
}
