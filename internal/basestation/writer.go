package basestation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/logging"
)

// BaseStation message types
const (
	SEL = "SEL" // Selection Change
	ID  = "ID"  // New ID
	AIR = "AIR" // New Aircraft
	STA = "STA" // Status Change
	CLK = "CLK" // Click
	MSG = "MSG" // Transmission
)

// BaseStation transmission types
const (
	TransmissionES_ID_CAT       = 1 // Extended Squitter Aircraft ID and Category
	TransmissionES_SURFACE      = 2 // Extended Squitter Surface Position
	TransmissionES_AIRBORNE     = 3 // Extended Squitter Airborne Position
	TransmissionES_VELOCITY     = 4 // Extended Squitter Airborne Velocity
	TransmissionSURVEILLANCE    = 5 // Surveillance Alt, Squawk change
	TransmissionSURVEILLANCE_ID = 6 // Surveillance ID change
	TransmissionAIR_TO_AIR      = 7 // Air-to-Air Message
	TransmissionALL_CALL        = 8 // All Call Reply
)

// Message represents a BaseStation format message
type Message struct {
	MessageType      string
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	TimeGenerated    time.Time
	DateLogged       time.Time
	TimeLogged       time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// Writer writes decoded ADS-B/Mode S messages in BaseStation (SBS-1) CSV
// format, the way the teacher's flat writer.go does, but sourced directly
// from the already-decoded adsb.DecodedMessage the demodulator's
// Collaborator produces instead of re-deriving fields from raw Beast bytes.
type Writer struct {
	logRotator *logging.LogRotator
	logger     *logrus.Logger
	sessionID  int
	aircraftID int
}

// NewWriter creates a new BaseStation writer
func NewWriter(logRotator *logging.LogRotator, logger *logrus.Logger) *Writer {
	return &Writer{
		logRotator: logRotator,
		logger:     logger,
		sessionID:  1,
		aircraftID: 1,
	}
}

// WriteMessage converts a decoded ADS-B/Mode S message to BaseStation CSV
// and appends it to the rotating log.
func (w *Writer) WriteMessage(msg *adsb.DecodedMessage) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	baseMsg := w.convertMessage(msg)
	if baseMsg == nil {
		return nil // Message type not supported for BaseStation format
	}

	csvLine := w.formatCSV(baseMsg)

	writer, err := w.logRotator.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get log writer: %w", err)
	}

	if _, err := writer.Write([]byte(csvLine + "\n")); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}

	return nil
}

// convertMessage maps a decoded message's already-extracted fields onto
// the BaseStation record, dispatching on DF and (for extended squitter)
// type code the same way the teacher's convertMessage does.
func (w *Writer) convertMessage(msg *adsb.DecodedMessage) *Message {
	now := time.Now()

	baseMsg := &Message{
		MessageType:   MSG,
		SessionID:     w.sessionID,
		AircraftID:    w.aircraftID,
		FlightID:      w.aircraftID,
		DateGenerated: msg.Timestamp,
		TimeGenerated: msg.Timestamp,
		DateLogged:    now,
		TimeLogged:    now,
		HexIdent:      fmt.Sprintf("%06X", msg.ICAO),
		IsOnGround:    msg.OnGround,
	}

	switch msg.DF {
	case 4, 5, 20, 21:
		baseMsg.TransmissionType = TransmissionSURVEILLANCE
		if msg.DF == 4 || msg.DF == 20 {
			if msg.Altitude != 0 {
				baseMsg.Altitude = strconv.Itoa(msg.Altitude)
			}
		}
		if msg.DF == 5 || msg.DF == 21 {
			if msg.Squawk != 0 {
				baseMsg.Squawk = fmt.Sprintf("%04d", msg.Squawk)
			}
		}
		return baseMsg

	case 11:
		baseMsg.TransmissionType = TransmissionALL_CALL
		return baseMsg

	case 17, 18:
		switch {
		case msg.TypeCode >= 1 && msg.TypeCode <= 4:
			baseMsg.TransmissionType = TransmissionES_ID_CAT
			baseMsg.Callsign = msg.Callsign

		case msg.TypeCode >= 5 && msg.TypeCode <= 8:
			baseMsg.TransmissionType = TransmissionES_SURFACE
			if msg.HasPos {
				baseMsg.Latitude = fmt.Sprintf("%.6f", msg.Latitude)
				baseMsg.Longitude = fmt.Sprintf("%.6f", msg.Longitude)
			}

		case msg.TypeCode >= 9 && msg.TypeCode <= 18:
			baseMsg.TransmissionType = TransmissionES_AIRBORNE
			if msg.Altitude != 0 {
				baseMsg.Altitude = strconv.Itoa(msg.Altitude)
			}
			if msg.HasPos {
				baseMsg.Latitude = fmt.Sprintf("%.6f", msg.Latitude)
				baseMsg.Longitude = fmt.Sprintf("%.6f", msg.Longitude)
			}

		case msg.TypeCode == 19:
			baseMsg.TransmissionType = TransmissionES_VELOCITY
			if msg.Velocity.GroundSpeed != 0 {
				baseMsg.GroundSpeed = strconv.Itoa(msg.Velocity.GroundSpeed)
			}
			if msg.Velocity.Track != 0 {
				baseMsg.Track = fmt.Sprintf("%.1f", msg.Velocity.Track)
			}
			if msg.Velocity.VerticalRate != 0 {
				baseMsg.VerticalRate = strconv.Itoa(msg.Velocity.VerticalRate)
			}
		}
		return baseMsg
	}

	return nil
}

// formatCSV formats a BaseStation message as CSV
func (w *Writer) formatCSV(msg *Message) string {
	fields := []string{
		msg.MessageType,
		strconv.Itoa(msg.TransmissionType),
		strconv.Itoa(msg.SessionID),
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.DateGenerated.Format("2006/01/02"),
		msg.TimeGenerated.Format("15:04:05.000"),
		msg.DateLogged.Format("2006/01/02"),
		msg.TimeLogged.Format("15:04:05.000"),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}

	return strings.Join(fields, ",")
}
