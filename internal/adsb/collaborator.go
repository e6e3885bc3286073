package adsb

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go1090/internal/demod"
)

// DecodedMessage is what DecodeMessage hands back through
// demod.Collaborator: a fully field-extracted Mode S/ADS-B frame, ready
// for UseMessage to forward to a tracker, Beast/Basestation output, or
// log sink.
type DecodedMessage struct {
	ICAO      uint32
	DF        int
	TypeCode  int
	Callsign  string
	Altitude  int
	Squawk    int
	Velocity  Velocity
	HasPos    bool
	Latitude  float64
	Longitude float64
	OnGround  string

	CRCType         string
	ErrorsCorrected int
	Timestamp       time.Time
	Timestamp12MHz  uint64
	SignalLevel     float64
	NoiseLevel      float64

	Raw [14]byte
}

// Stats tallies what ScoreMessage/DecodeMessage have seen, for a status
// line or metrics endpoint.
type Stats struct {
	Accepted          uint64
	RejectedCRC       uint64
	CorrectedSingle   uint64
	CorrectedTwoBit   uint64
	DecodeErrors      uint64
}

// Collaborator is the concrete demod.Collaborator this module ships:
// CRC validation/correction plus field extraction, the only window
// spec.md's signal-processing core has into message content.
type Collaborator struct {
	logger *logrus.Logger
	cpr    *CPRDecoder
	sink   func(*DecodedMessage)

	accepted, rejectedCRC, corrected1, corrected2, decodeErrors uint64
}

// NewCollaborator builds a Collaborator that calls sink for every
// message that passes CRC and field extraction. sink may be nil for
// tests that only care about scoring/stats.
func NewCollaborator(logger *logrus.Logger, sink func(*DecodedMessage)) *Collaborator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Collaborator{
		logger: logger,
		cpr:    NewCPRDecoder(logger, false),
		sink:   sink,
	}
}

func toFrame(bits []byte, df int) *ADSBMessage {
	msg := &ADSBMessage{}
	msgLen := demod.MessageLength(df) / 8
	if msgLen > len(msg.Data) {
		msgLen = len(msg.Data)
	}
	n := msgLen
	if n > len(bits) {
		n = len(bits)
	}
	copy(msg.Data[:n], bits[:n])
	return msg
}

// ScoreMessage runs Mode S CRC validation (with single/two-bit error
// correction for DF11/17/18) and converts the result into a score: -1
// means "reject", 0 or more ranks how much to trust a message whose CRC
// only validated after correction.
func (c *Collaborator) ScoreMessage(bits []byte, df int) int {
	msg := toFrame(bits, df)
	ValidateAndCorrectMessage(msg)
	if !msg.Valid {
		atomic.AddUint64(&c.rejectedCRC, 1)
		return -1
	}
	switch msg.CRCType {
	case "valid":
		return 10
	case "corrected-1":
		atomic.AddUint64(&c.corrected1, 1)
		return 5
	case "corrected-2":
		atomic.AddUint64(&c.corrected2, 1)
		return 2
	default:
		return -1
	}
}

// DecodeMessage re-validates (ScoreMessage already accepted this frame,
// but correction must be reapplied to recover the corrected bytes) and
// extracts every field this module understands, returning a
// *DecodedMessage as the demod.Message handed to UseMessage.
func (c *Collaborator) DecodeMessage(bits []byte, df int, meta demod.Meta) (demod.Message, error) {
	msg := toFrame(bits, df)
	ValidateAndCorrectMessage(msg)
	if !msg.Valid {
		atomic.AddUint64(&c.decodeErrors, 1)
		return nil, fmt.Errorf("adsb: CRC invalid for DF%d", df)
	}

	out := &DecodedMessage{
		ICAO:            msg.GetICAO(),
		DF:              df,
		CRCType:         msg.CRCType,
		ErrorsCorrected: msg.ErrorsCorrected,
		Timestamp:       time.Now(),
		Timestamp12MHz:  meta.Timestamp12MHz,
		SignalLevel:     meta.SignalLevel,
		NoiseLevel:      meta.NoiseLevel,
		Raw:             msg.Data,
		OnGround:        ExtractGroundState(msg.Data[:]),
	}

	if df == 17 || df == 18 {
		out.TypeCode = int(msg.GetTypeCode())
		switch {
		case out.TypeCode >= 1 && out.TypeCode <= 4:
			out.Callsign = ExtractCallsign(msg.Data[:])
		case out.TypeCode >= 9 && out.TypeCode <= 18, out.TypeCode >= 5 && out.TypeCode <= 8:
			out.Altitude = ExtractAltitude(msg.Data[:])
			if fFlag, latCPR, lonCPR, ok := ExtractCPRPosition(msg.Data[:]); ok {
				lat, lon := c.cpr.DecodeCPRPosition(out.ICAO, fFlag, latCPR, lonCPR)
				if lat != 0 || lon != 0 {
					out.HasPos = true
					out.Latitude = lat
					out.Longitude = lon
				}
			}
		case out.TypeCode == 19:
			out.Velocity = ExtractVelocity(msg.Data[:])
		}
	} else if df == 4 || df == 20 {
		out.Altitude = ExtractAltitude(msg.Data[:])
	} else if df == 5 || df == 21 {
		out.Squawk = ExtractSquawk(msg.Data[:])
	}

	return out, nil
}

// UseMessage delivers a decoded message to whatever sink the
// Collaborator was built with (normally internal/app, wiring it on to
// Beast/Basestation output), counting it as accepted first.
func (c *Collaborator) UseMessage(m demod.Message) {
	atomic.AddUint64(&c.accepted, 1)
	if c.sink == nil {
		return
	}
	dm, ok := m.(*DecodedMessage)
	if !ok {
		return
	}
	c.sink(dm)
}

// Stats snapshots the collaborator's running counters.
func (c *Collaborator) Stats() Stats {
	return Stats{
		Accepted:        atomic.LoadUint64(&c.accepted),
		RejectedCRC:     atomic.LoadUint64(&c.rejectedCRC),
		CorrectedSingle: atomic.LoadUint64(&c.corrected1),
		CorrectedTwoBit: atomic.LoadUint64(&c.corrected2),
		DecodeErrors:    atomic.LoadUint64(&c.decodeErrors),
	}
}
