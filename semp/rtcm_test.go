package semp

import "testing"

func buildRTCMFrame(payload []byte) []byte {
	frame := make([]byte, 0, 3+len(payload)+3)
	frame = append(frame, 0xd3, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)

	var crc uint32
	for _, b := range frame {
		crc = crc24qUpdate(crc, b)
	}
	frame = append(frame, byte(crc>>16), byte(crc>>8), byte(crc))
	return frame
}

func newRTCMOnlyParser(t *testing.T, eom EOMCallback, badCRC BadCRCCallback) *ParseState {
	t.Helper()
	p, err := Begin(Config{
		Name:         "test",
		Parsers:      []ParserDescription{RTCMParser()},
		BufferLength: rtcmMinimumParseAreaBytes,
		EOM:          eom,
		BadCRC:       badCRC,
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return p
}

func TestRTCMFillerMessage(t *testing.T) {
	var count int
	p := newRTCMOnlyParser(t, func(p *ParseState, typ int) {
		count++
		if got := p.Length(); got != 6 {
			t.Fatalf("expected 6-byte filler frame, got %d", got)
		}
	}, nil)

	p.ParseNextBytes(buildRTCMFrame(nil))

	if count != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", count)
	}
}

func TestRTCMMessageWithPayload(t *testing.T) {
	var gotNumber int
	var count int
	p := newRTCMOnlyParser(t, func(p *ParseState, typ int) {
		count++
		gotNumber = p.RTCMMessageNumber()
	}, nil)

	payload := make([]byte, 20)
	payload[0] = 0x3e // top byte of message number 1000 << 4 spread across first 12 bits
	payload[1] = 0xd0
	p.ParseNextBytes(buildRTCMFrame(payload))

	if count != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", count)
	}
	want := (int(payload[0]) << 4) | (int(payload[1]) >> 4)
	if gotNumber != want {
		t.Fatalf("expected message number %d, got %d", want, gotNumber)
	}
}

func TestRTCMBadCRCNoRescue(t *testing.T) {
	var count int
	p := newRTCMOnlyParser(t, func(p *ParseState, typ int) {
		count++
	}, nil)

	frame := buildRTCMFrame([]byte{1, 2, 3})
	frame[len(frame)-1] ^= 0xff // corrupt the trailing CRC byte

	p.ParseNextBytes(frame)

	if count != 0 {
		t.Fatalf("expected corrupt frame to be rejected, got %d deliveries", count)
	}
}

func TestRTCMReservedBitsRejectedAndResynced(t *testing.T) {
	var count int
	p := newRTCMOnlyParser(t, func(p *ParseState, typ int) {
		count++
	}, nil)

	bad := []byte{0xd3, 0xff, 0x00} // reserved bits set, not a valid header
	good := buildRTCMFrame([]byte{9, 9, 9})

	p.ParseNextBytes(bad)
	p.ParseNextBytes(good)

	if count != 1 {
		t.Fatalf("expected the valid frame after the bad header to be delivered, got %d", count)
	}
}
