package semp

import "testing"

// appendUnicoreBinaryCRC appends a 4-byte trailer to data such that folding
// crc32ReversedUpdate across data plus the trailer lands on exactly zero,
// mirroring the self-checking property the Unicore binary parser relies on.
func appendUnicoreBinaryCRC(data []byte) []byte {
	var crc uint32
	for _, b := range data {
		crc = crc32ReversedUpdate(crc, b)
	}

	// With a zero initial value and no final XOR, folding the CRC's own four
	// bytes in little-endian order shifts the register down to zero.
	trailer := []byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}

	out := make([]byte, 0, len(data)+4)
	out = append(out, data...)
	out = append(out, trailer...)
	return out
}

func buildUnicoreBinaryFrame(messageID uint16, payload []byte) []byte {
	header := make([]byte, unicoreBinaryHeaderBytes)
	header[0], header[1], header[2] = 0xaa, 0x44, 0xb5
	header[4] = byte(messageID)
	header[5] = byte(messageID >> 8)
	header[6] = byte(len(payload))
	header[7] = byte(len(payload) >> 8)

	data := append(header, payload...)
	return appendUnicoreBinaryCRC(data)
}

func newUnicoreBinaryOnlyParser(t *testing.T, eom EOMCallback) *ParseState {
	t.Helper()
	p, err := Begin(Config{
		Name:         "test",
		Parsers:      []ParserDescription{UnicoreBinaryParser()},
		BufferLength: 256,
		EOM:          eom,
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return p
}

func TestUnicoreBinaryGoodMessage(t *testing.T) {
	var count int
	var gotID uint16
	p := newUnicoreBinaryOnlyParser(t, func(p *ParseState, typ int) {
		count++
		gotID = p.UnicoreBinaryMessageID()
	})

	p.ParseNextBytes(buildUnicoreBinaryFrame(0x1234, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	if count != 1 {
		t.Fatalf("expected 1 delivered frame, got %d", count)
	}
	if gotID != 0x1234 {
		t.Fatalf("expected message ID 0x1234, got 0x%04x", gotID)
	}
}

func TestUnicoreBinaryBadCRCRejected(t *testing.T) {
	var count int
	p := newUnicoreBinaryOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})

	frame := buildUnicoreBinaryFrame(0x1234, []byte{1, 2, 3, 4})
	frame[len(frame)-1] ^= 0xff

	p.ParseNextBytes(frame)

	if count != 0 {
		t.Fatalf("expected corrupt frame to be rejected, got %d deliveries", count)
	}
}

func TestUnicoreBinarySyncMismatchResyncs(t *testing.T) {
	var count int
	p := newUnicoreBinaryOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})

	bad := []byte{0xaa, 0x00} // wrong second sync byte
	good := buildUnicoreBinaryFrame(0x0001, []byte{9, 9, 9, 9})

	p.ParseNextBytes(bad)
	p.ParseNextBytes(good)

	if count != 1 {
		t.Fatalf("expected the valid frame after the bad sync byte to be delivered, got %d", count)
	}
}
