package adsb

import (
	"math"
	"strings"
)

// getBits extracts up to 8 bits from data using 1-based bit indexing, the
// convention Mode S field definitions use.
func getBits(data []byte, firstBit, lastBit int) uint8 {
	if firstBit < 1 || lastBit < firstBit || len(data) == 0 {
		return 0
	}
	fbi := firstBit - 1
	lbi := lastBit - 1
	nbi := lastBit - firstBit + 1
	if nbi > 8 {
		return 0
	}
	fby := fbi / 8
	lby := lbi / 8
	if lby >= len(data) {
		return 0
	}
	shift := 7 - (lbi % 8)
	topMask := uint8(0xFF >> (fbi % 8))

	switch {
	case fby == lby:
		return (data[fby] & topMask) >> shift
	case lby == fby+1:
		return ((data[fby] & topMask) << (8 - shift)) | (data[lby] >> shift)
	case lby == fby+2:
		return ((data[fby] & topMask) << (16 - shift)) | (data[fby+1] << (8 - shift)) | (data[lby] >> shift)
	}

	var result uint32
	for i := fby; i <= lby && i < len(data); i++ {
		if i == fby {
			result = uint32(data[i] & topMask)
		} else {
			result = (result << 8) | uint32(data[i])
		}
	}
	if nbi <= 32 {
		return uint8((result >> shift) & ((1 << nbi) - 1))
	}
	return uint8(result >> shift)
}

// getBitsUint16 is getBits for fields wider than 8 bits (up to 16).
func getBitsUint16(data []byte, firstBit, lastBit int) uint16 {
	if firstBit < 1 || lastBit < firstBit || len(data) == 0 {
		return 0
	}
	fbi := firstBit - 1
	lbi := lastBit - 1
	nbi := lastBit - firstBit + 1
	if nbi > 16 {
		return 0
	}
	fby := fbi / 8
	lby := lbi / 8
	if lby >= len(data) {
		return 0
	}
	shift := 7 - (lbi % 8)
	topMask := uint8(0xFF >> (fbi % 8))

	var result uint32
	for i := fby; i <= lby && i < len(data); i++ {
		if i == fby {
			result = uint32(data[i] & topMask)
		} else {
			result = (result << 8) | uint32(data[i])
		}
	}
	return uint16((result >> shift) & ((1 << nbi) - 1))
}

// ExtractICAO reads the 24-bit ICAO address from bytes 1-3 of the frame.
func ExtractICAO(data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	return (uint32(data[1]) << 16) | (uint32(data[2]) << 8) | uint32(data[3])
}

// ExtractCallsign decodes an aircraft identification ME field (DF17/18,
// type codes 1-4) into an 8-character callsign using the Mode S 6-bit
// character set.
func ExtractCallsign(data []byte) string {
	if len(data) < 11 {
		return ""
	}
	me := data[4:]
	if len(me) < 7 {
		return ""
	}

	var callsign [8]byte
	callsign[0] = ADSBCharset[getBits(me, 9, 14)]
	callsign[1] = ADSBCharset[getBits(me, 15, 20)]
	callsign[2] = ADSBCharset[getBits(me, 21, 26)]
	callsign[3] = ADSBCharset[getBits(me, 27, 32)]
	callsign[4] = ADSBCharset[getBits(me, 33, 38)]
	callsign[5] = ADSBCharset[getBits(me, 39, 44)]
	callsign[6] = ADSBCharset[getBits(me, 45, 50)]
	callsign[7] = ADSBCharset[getBits(me, 51, 56)]

	for _, c := range callsign {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == ' ') {
			return ""
		}
	}
	return strings.TrimSpace(string(callsign[:]))
}

// ExtractAltitude decodes the AC13 (surveillance) or AC12 (extended
// squitter) altitude field, handling both the 25-foot Q-bit encoding and
// legacy Gillham-coded 100-foot encoding.
func ExtractAltitude(data []byte) int {
	if len(data) < 6 {
		return 0
	}
	df := (data[0] >> 3) & 0x1F

	var altCode uint16
	switch df {
	case 4, 20:
		ac13 := (uint16(data[2]&0x1F) << 8) | uint16(data[3])
		// Drop the M bit (0x40) so the field has the AC12 layout used below.
		altCode = ((ac13 & 0x1F80) >> 1) | (ac13 & 0x003F)
	case 17, 18:
		altCode = (uint16(data[5]) << 4) | (uint16(data[6]) >> 4)
	default:
		return 0
	}
	if altCode == 0 {
		return 0
	}

	if altCode&0x10 != 0 {
		n := ((altCode & 0x0FE0) >> 1) | (altCode & 0x000F)
		return int(n)*25 - 1000
	}

	n13 := ((altCode & 0x0FC0) << 1) | (altCode & 0x003F)
	if n13 == 0 {
		return 0
	}
	hundreds := int((n13 >> 8) & 0x07)
	fiveHundreds := int((n13 >> 4) & 0x0F)
	altitude := (fiveHundreds*5 + hundreds) * 100
	if altitude < -2000 || altitude > 60000 {
		return 0
	}
	return altitude
}

// ExtractSquawk decodes the 13-bit identity field of a surveillance
// (DF5/DF21) message into a 4-digit squawk code.
func ExtractSquawk(data []byte) int {
	if len(data) < 4 {
		return 0
	}
	identity := (uint16(data[2]&0x1F) << 8) | uint16(data[3])
	squawk := 0
	squawk += int((identity>>SquawkA4A2A1Shift)&SquawkA4A2A1Mask) * SquawkAMultiplier
	squawk += int((identity>>SquawkB4B2B1Shift)&SquawkB4B2B1Mask) * SquawkBMultiplier
	squawk += int((identity>>SquawkC4C2C1Shift)&SquawkC4C2C1Mask) * SquawkCMultiplier
	squawk += int((identity>>SquawkD4D2D1Shift)&SquawkD4D2D1Mask) * SquawkDMultiplier
	return squawk
}

// Velocity holds the decoded fields of an airborne velocity (type code
// 19) ME field.
type Velocity struct {
	GroundSpeed  int
	Track        float64
	VerticalRate int
}

// ExtractVelocity decodes a type-19 ME field, handling both the
// ground-speed (subtype 1/2) and airspeed (subtype 3/4) encodings.
func ExtractVelocity(data []byte) Velocity {
	var v Velocity
	if len(data) < 11 {
		return v
	}
	subtype := data[4] & 0x07
	if subtype < 1 || subtype > 4 {
		return v
	}
	me := data[4:]

	switch subtype {
	case 1, 2:
		ewRaw := getBitsUint16(me, 15, 24)
		nsRaw := getBitsUint16(me, 26, 35)
		if ewRaw != 0 && nsRaw != 0 {
			ewVel := int(ewRaw-1) * (1 << (subtype - 1))
			if getBits(me, 14, 14) != 0 {
				ewVel = -ewVel
			}
			nsVel := int(nsRaw-1) * (1 << (subtype - 1))
			if getBits(me, 25, 25) != 0 {
				nsVel = -nsVel
			}
			v.GroundSpeed = int(math.Sqrt(float64(nsVel*nsVel+ewVel*ewVel)) + 0.5)
			if v.GroundSpeed > 0 {
				v.Track = math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
				if v.Track < 0 {
					v.Track += 360
				}
			}
		}
	case 3, 4:
		if getBits(me, 14, 14) != 0 {
			v.Track = float64(getBitsUint16(me, 15, 24)) * 360.0 / 1024.0
		}
		airspeedRaw := getBitsUint16(me, 26, 35)
		if airspeedRaw != 0 {
			v.GroundSpeed = int(airspeedRaw-1) * (1 << (subtype - 3))
		}
	}

	vrRaw := getBitsUint16(me, 38, 46)
	if vrRaw != 0 {
		v.VerticalRate = int(vrRaw-1) * 64
		if getBits(me, 37, 37) != 0 {
			v.VerticalRate = -v.VerticalRate
		}
	}
	return v
}

// ExtractCPRPosition pulls the raw CPR lat/lon fields and F-flag out of a
// type 5-8/9-18 ME field; the caller is responsible for running them
// through a CPRDecoder.
func ExtractCPRPosition(data []byte) (fFlag uint8, latCPR, lonCPR uint32, ok bool) {
	if len(data) < 11 {
		return 0, 0, 0, false
	}
	fFlag = (data[6] >> 2) & 0x01
	latCPR = ((uint32(data[6]&0x03) << 15) | (uint32(data[7]) << 7) | (uint32(data[8]) >> 1)) & 0x1FFFF
	lonCPR = ((uint32(data[8]&0x01) << 16) | (uint32(data[9]) << 8) | uint32(data[10])) & 0x1FFFF
	return fFlag, latCPR, lonCPR, true
}

// ExtractGroundState reports "1" when a message indicates the aircraft
// is on the ground, "0" otherwise (airborne, or unknown and defaulted to
// airborne).
func ExtractGroundState(data []byte) string {
	if len(data) < 5 {
		return "0"
	}
	df := (data[0] >> 3) & 0x1F

	if df == 4 || df == 5 || df == 20 || df == 21 {
		fs := data[0] & 0x07
		if fs == 1 || fs == 3 {
			return "1"
		}
	}
	if df == 17 || df == 18 {
		typeCode := (data[4] >> 3) & 0x1F
		if typeCode >= 5 && typeCode <= 8 {
			return "1"
		}
		if df == 17 {
			ca := data[0] & 0x07
			if ca == 4 {
				return "1"
			} else if ca == 5 {
				return "0"
			}
		}
	}
	return "0"
}
