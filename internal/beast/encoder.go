package beast

// EncodeModeS serializes one decoded Mode S frame into the Beast binary
// wire format: sync byte, message type, a 6-byte 12MHz timestamp, a signal
// byte, and the frame itself, with every 0x1A byte in the timestamp/
// signal/data region escaped by doubling it (mirroring Decoder.unescapeData's
// inverse).
func EncodeModeS(timestamp12MHz uint64, signal byte, data []byte) []byte {
	messageType := byte(ModeS)
	if len(data) > 7 {
		messageType = ModeSLong
	}

	ts := timestampBytes(timestamp12MHz)

	body := make([]byte, 0, 8+len(data))
	body = append(body, ts[:]...)
	body = append(body, signal)
	body = append(body, data...)

	out := make([]byte, 0, 2+2*len(body))
	out = append(out, SyncByte, messageType)
	out = append(out, escape(body)...)
	return out
}

// EncodeModeAC serializes a Mode A/C frame (2 data bytes) the same way.
func EncodeModeAC(timestamp12MHz uint64, signal byte, data [2]byte) []byte {
	ts := timestampBytes(timestamp12MHz)
	body := make([]byte, 0, 9)
	body = append(body, ts[:]...)
	body = append(body, signal)
	body = append(body, data[:]...)

	out := make([]byte, 0, 2+2*len(body))
	out = append(out, SyncByte, ModeAC)
	out = append(out, escape(body)...)
	return out
}

func timestampBytes(ts uint64) [6]byte {
	var b [6]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	return b
}

// escape doubles every 0x1A byte in body, the Beast protocol's
// byte-stuffing rule for everything after the message-type byte.
func escape(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for _, b := range body {
		if b == SyncByte {
			out = append(out, SyncByte)
		}
		out = append(out, b)
	}
	return out
}
