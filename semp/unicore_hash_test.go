package semp

import (
	"fmt"
	"testing"
)

// unicoreHashXORSentence builds a "#" sentence using the two-digit XOR
// checksum (selected when the name contains "MODE").
func unicoreHashXORSentence(name, body string) string {
	payload := name + "," + body
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return fmt.Sprintf("#%s*%02X\r\n", payload, sum)
}

// unicoreHashCRCSentence builds a "#" sentence using the eight-digit
// reversed-CRC-32 checksum (the default path for names that don't contain
// "MODE").
func unicoreHashCRCSentence(name, body string) string {
	payload := name + "," + body
	var crc uint32
	for i := 0; i < len(payload); i++ {
		crc = crc32ReversedUpdate(crc, payload[i])
	}
	return fmt.Sprintf("#%s*%08X\r\n", payload, crc)
}

// flipHexDigit returns a different valid hex digit character, so corrupting
// a checksum byte with it exercises a checksum mismatch rather than an
// invalid-character rescan.
func flipHexDigit(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}

func newUnicoreHashOnlyParser(t *testing.T, eom EOMCallback) *ParseState {
	t.Helper()
	p, err := Begin(Config{
		Name:         "test",
		Parsers:      []ParserDescription{UnicoreHashParser()},
		BufferLength: 256,
		EOM:          eom,
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return p
}

func TestUnicoreHashGoodXORSentence(t *testing.T) {
	var count int
	var gotName string
	p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
		count++
		gotName = p.UnicoreHashSentenceName()
	})

	p.ParseNextBytes([]byte(unicoreHashXORSentence("MODE", "fine,1,2")))

	if count != 1 {
		t.Fatalf("expected 1 delivered sentence, got %d", count)
	}
	if gotName != "MODE" {
		t.Fatalf("expected sentence name MODE, got %q", gotName)
	}
}

func TestUnicoreHashGoodNonMODESentenceUsesCRC32(t *testing.T) {
	var count int
	var gotName string
	p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
		count++
		gotName = p.UnicoreHashSentenceName()
	})

	p.ParseNextBytes([]byte(unicoreHashCRCSentence("BESTPOSA", "1,2,3,4")))

	if count != 1 {
		t.Fatalf("expected 1 delivered sentence, got %d", count)
	}
	if gotName != "BESTPOSA" {
		t.Fatalf("expected sentence name BESTPOSA, got %q", gotName)
	}
}

func TestUnicoreHashBadChecksumNoRescue(t *testing.T) {
	var count int
	var invalidCount int
	p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})
	p.SetInvalidDataCallback(func(p *ParseState, data []byte) {
		invalidCount++
	})

	sentence := unicoreHashXORSentence("MODE", "fine,1,2")
	corrupt := []byte(sentence)
	corrupt[len(corrupt)-4] = flipHexDigit(corrupt[len(corrupt)-4])

	p.ParseNextBytes(corrupt)

	if count != 0 {
		t.Fatalf("expected corrupt sentence to be rejected, got %d deliveries", count)
	}
	if invalidCount == 0 {
		t.Fatalf("expected the bad checksum to reach the invalid-data callback")
	}
}

func TestUnicoreHashBadCRC32NoRescue(t *testing.T) {
	var count int
	var invalidCount int
	p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})
	p.SetInvalidDataCallback(func(p *ParseState, data []byte) {
		invalidCount++
	})

	sentence := unicoreHashCRCSentence("BESTPOSA", "1,2,3,4")
	corrupt := []byte(sentence)
	corrupt[len(corrupt)-4] = flipHexDigit(corrupt[len(corrupt)-4])

	p.ParseNextBytes(corrupt)

	if count != 0 {
		t.Fatalf("expected corrupt CRC-32 sentence to be rejected, got %d deliveries", count)
	}
	if invalidCount == 0 {
		t.Fatalf("expected the bad CRC to reach the invalid-data callback")
	}
}

func TestUnicoreHashLineTerminatorEitherOrder(t *testing.T) {
	for _, term := range []string{"\r\n", "\n\r"} {
		var count int
		p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
			count++
		})

		sentence := unicoreHashXORSentence("MODE", "fine,1,2")
		sentence = sentence[:len(sentence)-2] + term

		p.ParseNextBytes([]byte(sentence))

		if count != 1 {
			t.Fatalf("terminator %q: expected 1 delivered sentence, got %d", term, count)
		}
	}
}

func TestUnicoreHashInterleavedNoiseResyncs(t *testing.T) {
	var count int
	p := newUnicoreHashOnlyParser(t, func(p *ParseState, typ int) {
		count++
	})

	noise := []byte{0xff, 0xfe, 0x00}
	good := []byte(unicoreHashXORSentence("MODE", "fine,1,2"))

	p.ParseNextBytes(noise)
	p.ParseNextBytes(good)

	if count != 1 {
		t.Fatalf("expected noise to be rejected and the good sentence delivered, got %d", count)
	}
}
