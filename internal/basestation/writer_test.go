package basestation

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/adsb"
	"go1090/internal/logging"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	rotator, err := logging.NewLogRotator(t.TempDir(), false, logger)
	require.NoError(t, err)
	t.Cleanup(func() { rotator.Close() })
	return NewWriter(rotator, logger)
}

func readCurrentLog(t *testing.T, w *Writer) string {
	t.Helper()
	data, err := os.ReadFile(w.logRotator.GetCurrentLogFile())
	require.NoError(t, err)
	return string(data)
}

func TestWriter_WriteMessage_Identification(t *testing.T) {
	w := newTestWriter(t)

	msg := &adsb.DecodedMessage{
		ICAO:      0x484412,
		DF:        17,
		TypeCode:  4,
		Callsign:  "AFL123",
		Timestamp: time.Now(),
	}
	require.NoError(t, w.WriteMessage(msg))

	line := readCurrentLog(t, w)
	assert.True(t, strings.HasPrefix(line, "MSG,1,1,1,484412,1,"))
	assert.Contains(t, line, "AFL123")
}

func TestWriter_WriteMessage_AirbornePosition(t *testing.T) {
	w := newTestWriter(t)

	msg := &adsb.DecodedMessage{
		ICAO:      0x484412,
		DF:        17,
		TypeCode:  11,
		Altitude:  35000,
		HasPos:    true,
		Latitude:  51.5,
		Longitude: -0.1,
		Timestamp: time.Now(),
	}
	require.NoError(t, w.WriteMessage(msg))

	line := readCurrentLog(t, w)
	assert.Contains(t, line, "35000")
	assert.Contains(t, line, "51.500000")
}

func TestWriter_WriteMessage_Surveillance(t *testing.T) {
	w := newTestWriter(t)

	msg := &adsb.DecodedMessage{
		ICAO:      0x484412,
		DF:        5,
		Squawk:    1234,
		Timestamp: time.Now(),
	}
	require.NoError(t, w.WriteMessage(msg))

	line := readCurrentLog(t, w)
	assert.Contains(t, line, "1234")
}

func TestWriter_WriteMessage_UnsupportedDFSkipped(t *testing.T) {
	w := newTestWriter(t)

	msg := &adsb.DecodedMessage{ICAO: 0x1, DF: 24, Timestamp: time.Now()}
	require.NoError(t, w.WriteMessage(msg))

	_, err := os.ReadFile(w.logRotator.GetCurrentLogFile())
	require.NoError(t, err)
	line := readCurrentLog(t, w)
	assert.Empty(t, line)
}

func TestWriter_WriteMessage_NilRejected(t *testing.T) {
	w := newTestWriter(t)
	assert.Error(t, w.WriteMessage(nil))
}
