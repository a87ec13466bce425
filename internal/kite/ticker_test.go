package kite

import (
	"encoding/binary"
	"testing"
)

func buildFrame(packets ...[]byte) []byte {
	frame := make([]byte, 2)
	binary.BigEndian.PutUint16(frame, uint16(len(packets)))
	for _, p := range packets {
		lenPrefix := make([]byte, 2)
		binary.BigEndian.PutUint16(lenPrefix, uint16(len(p)))
		frame = append(frame, lenPrefix...)
		frame = append(frame, p...)
	}
	return frame
}

func quotePacket(token uint32, pricePaise uint32) []byte {
	p := make([]byte, 8)
	binary.BigEndian.PutUint32(p[0:4], token)
	binary.BigEndian.PutUint32(p[4:8], pricePaise)
	return p
}

func TestParseTicks(t *testing.T) {
	frame := buildFrame(
		quotePacket(408065, 152250),
		quotePacket(884737, 98005),
	)

	ticks := ParseTicks(frame)
	if len(ticks) != 2 {
		t.Fatalf("parsed %d ticks, want 2", len(ticks))
	}
	if ticks[0].InstrumentToken != 408065 || ticks[0].LastPrice != 1522.50 {
		t.Errorf("tick[0] = %+v", ticks[0])
	}
	if ticks[1].InstrumentToken != 884737 || ticks[1].LastPrice != 980.05 {
		t.Errorf("tick[1] = %+v", ticks[1])
	}
}

func TestParseTicksLongerPacket(t *testing.T) {
	// Full-mode packets carry extra fields past the first 8 bytes;
	// only token and LTP are decoded.
	packet := make([]byte, 44)
	binary.BigEndian.PutUint32(packet[0:4], 12345)
	binary.BigEndian.PutUint32(packet[4:8], 10000)

	ticks := ParseTicks(buildFrame(packet))
	if len(ticks) != 1 {
		t.Fatalf("parsed %d ticks, want 1", len(ticks))
	}
	if ticks[0].InstrumentToken != 12345 || ticks[0].LastPrice != 100 {
		t.Errorf("tick = %+v", ticks[0])
	}
}

func TestParseTicksMalformedFrames(t *testing.T) {
	cases := map[string][]byte{
		"empty":           nil,
		"single byte":     {0x01},
		"truncated count": buildFrame()[:2],
		"short packet":    buildFrame([]byte{0x00, 0x01, 0x02}),
	}
	for name, frame := range cases {
		if ticks := ParseTicks(frame); len(ticks) != 0 {
			t.Errorf("%s: parsed %d ticks from malformed frame", name, len(ticks))
		}
	}
}

func TestParseTicksStopsAtTruncation(t *testing.T) {
	frame := buildFrame(quotePacket(1, 100), quotePacket(2, 200))
	truncated := frame[:len(frame)-4]

	ticks := ParseTicks(truncated)
	if len(ticks) != 1 {
		t.Fatalf("parsed %d ticks from truncated frame, want 1", len(ticks))
	}
	if ticks[0].InstrumentToken != 1 {
		t.Errorf("tick = %+v", ticks[0])
	}
}
