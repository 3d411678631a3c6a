package semp

import "testing"

func buildSBFFrame(blockID uint16, rev uint8, body []byte) []byte {
	for len(body)%4 != 0 {
		body = append(body, 0)
	}
	length := 8 + len(body)
	id := (blockID & 0x1fff) | (uint16(rev&0x7) << 13)

	header := []byte{
		byte(id), byte(id >> 8),
		byte(length), byte(length >> 8),
	}
	crcInput := append(append([]byte{}, header...), body...)

	var crc uint16
	for _, b := range crcInput {
		crc = ccitt16Update(crc, b)
	}

	frame := make([]byte, 0, 2+2+len(header)+len(body))
	frame = append(frame, '$', '@', byte(crc), byte(crc>>8))
	frame = append(frame, header...)
	frame = append(frame, body...)
	return frame
}

func newSBFOnlyParser(t *testing.T, eom EOMCallback) *ParseState {
	t.Helper()
	p, err := Begin(Config{
		Name:         "test",
		Parsers:      []ParserDescription{SBFParser()},
		BufferLength: 256,
		EOM:          eom,
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return p
}

func TestSBFGoodBlock(t *testing.T) {
	var count int
	var gotBlock uint16
	p := newSBFOnlyParser(t, func(p *ParseState, typ int) {
		count++
		gotBlock = p.SBFBlockNumber()
	})

	p.ParseNextBytes(buildSBFFrame(4027, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	if count != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", count)
	}
	if gotBlock != 4027 {
		t.Fatalf("expected block 4027, got %d", gotBlock)
	}
}

func TestSBFLengthNotModulo4Rejected(t *testing.T) {
	var count int
	var invalidCount int
	p := newSBFOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})
	p.SetInvalidDataCallback(func(p *ParseState, data []byte) {
		invalidCount++
	})

	good := buildSBFFrame(4027, 0, []byte{1, 2, 3, 4})

	bad := make([]byte, len(good))
	copy(bad, good)
	// Corrupt the length field (offset 6,7) to an odd value while leaving
	// everything else alone, so the frame is rejected before any CRC check.
	badLength := uint16(len(good)) + 1
	bad[6] = byte(badLength)
	bad[7] = byte(badLength >> 8)

	p.ParseNextBytes(bad)
	p.ParseNextBytes(good)

	if invalidCount == 0 {
		t.Fatalf("expected the non-multiple-of-4 length to be reported as invalid data")
	}
	if count != 1 {
		t.Fatalf("expected the following good frame to be delivered, got %d", count)
	}
}

func TestSBFBadCRCRejected(t *testing.T) {
	var count int
	p := newSBFOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})

	frame := buildSBFFrame(4027, 0, []byte{1, 2, 3, 4})
	frame[len(frame)-1] ^= 0xff

	p.ParseNextBytes(frame)

	if count != 0 {
		t.Fatalf("expected corrupt SBF frame to be rejected, got %d deliveries", count)
	}
}

func TestSBFRejectFeedsSPARTNFallback(t *testing.T) {
	var sbfCount, spartnCount int
	sbf := newSBFOnlyParser(t, func(p *ParseState, typ int) {
		sbfCount++
	})
	spartn := newSPARTNOnlyParser(t, func(p *ParseState, typ int) {
		spartnCount++
	})
	sbf.SetSBFInvalidDataCallback(func(p *ParseState, data []byte) {
		spartn.ParseNextBytes(data)
	})

	inner := buildSPARTNFrame(7, 3, []byte{1, 2, 3, 4})
	frame := buildSBFFrame(4027, 0, inner)
	frame[len(frame)-1] ^= 0xff // corrupt the trailing CRC byte so SBF rejects the whole frame

	sbf.ParseNextBytes(frame)

	if sbfCount != 0 {
		t.Fatalf("expected the corrupt SBF frame not to deliver as SBF, got %d", sbfCount)
	}
	if spartnCount != 1 {
		t.Fatalf("expected the embedded SPARTN frame to be recovered via the fallback sink, got %d", spartnCount)
	}
}

func TestSBFEncapsulatedNMEA(t *testing.T) {
	var count int
	var payload []byte
	p := newSBFOnlyParser(t, func(p *ParseState, typ int) {
		count++
		if p.SBFIsEncapsulatedNMEA() {
			payload = append([]byte{}, p.SBFEncapsulatedPayload()...)
		}
	})

	inner := []byte("$GPGGA,1*2A\r\n")
	body := make([]byte, 20-8) // bytes 8..19 of the frame, sub-header before the payload
	body[14-8] = 4             // mode byte at absolute offset 14 selects NMEA
	body[16-8] = byte(len(inner))
	body[17-8] = byte(len(inner) >> 8)
	body = append(body, inner...)

	p.ParseNextBytes(buildSBFFrame(sbfEncapsulationBlockID, 0, body))

	if count != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", count)
	}
	if string(payload) != string(inner) {
		t.Fatalf("expected encapsulated payload %q, got %q", inner, payload)
	}
}
