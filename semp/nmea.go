package semp

import "fmt"

// NMEA frames look like $GPGGA,...,...*5B\r\n — a dollar sign, an
// alphanumeric sentence name, a comma-separated body terminated by an
// asterisk, two hex checksum digits covering everything between the dollar
// and the asterisk, and an optional CR/LF pair in either order.

const nmeaSentenceNameBytes = 16

// nmeaBufferOverhead is the room nmeaFindAsterisk reserves past the current
// body byte for the asterisk, two checksum digits, CR, LF and a trailing NUL.
const nmeaBufferOverhead = 6

type nmeaScratch struct {
	name    [nmeaSentenceNameBytes]byte
	nameLen int
}

// NMEAParser registers the NMEA 0183 text sentence protocol.
func NMEAParser() ParserDescription {
	return ParserDescription{
		Name:                  "NMEA",
		Preamble:              nmeaPreamble,
		StateName:             nmeaStateName,
		MinimumParseAreaBytes: nmeaBufferOverhead + nmeaSentenceNameBytes,
	}
}

func nmeaPreamble(p *ParseState, data byte) bool {
	if data != '$' {
		return false
	}
	p.scratch = &nmeaScratch{}
	p.crc = 0
	p.state = nmeaFindFirstComma
	return true
}

func nmeaFindFirstComma(p *ParseState, data byte) bool {
	s := p.scratch.(*nmeaScratch)

	if data == ',' && s.nameLen > 0 {
		p.crc ^= uint32(data)
		p.state = nmeaFindAsterisk
		return true
	}

	// -1 reserves a slot the way the original's sizeof(messageName)-1 does.
	if isAlnum(data) && s.nameLen < len(s.name)-1 {
		s.name[s.nameLen] = data
		s.nameLen++
		p.crc ^= uint32(data)
		return true
	}

	p.errorf("semp %s: NMEA invalid sentence name character 0x%02x", p.name, data)
	return p.reject(data, true)
}

func nmeaFindAsterisk(p *ParseState, data byte) bool {
	if data == '*' {
		p.state = nmeaChecksumByte1
		return true
	}

	if p.AbortOnNonPrintable && (data < 0x20 || data > 0x7e) {
		p.errorf("semp %s: NMEA non-printable byte 0x%02x in sentence body", p.name, data)
		return p.reject(data, true)
	}

	if p.length+nmeaBufferOverhead > len(p.buffer) {
		p.errorf("semp %s: NMEA sentence too long for buffer", p.name)
		return p.reject(data, true)
	}

	p.crc ^= uint32(data)
	return true
}

func nmeaChecksumByte1(p *ParseState, data byte) bool {
	if asciiToNibble(data) < 0 {
		p.errorf("semp %s: NMEA invalid checksum character 0x%02x", p.name, data)
		return p.reject(data, true)
	}
	p.state = nmeaChecksumByte2
	return true
}

func nmeaChecksumByte2(p *ParseState, data byte) bool {
	lo := asciiToNibble(data)
	if lo < 0 {
		p.errorf("semp %s: NMEA invalid checksum character 0x%02x", p.name, data)
		return p.reject(data, true)
	}
	hi := asciiToNibble(p.buffer[p.length-2])
	checksum := byte(hi<<4 | lo)

	if p.rescueOrReject(checksum == byte(p.crc)) {
		p.buffer[p.length] = '\r'
		p.length++
		p.buffer[p.length] = '\n'
		p.length++
		p.buffer[p.length] = 0 // not counted in Length, matches the round-trip length contract
		p.eom(p, p.active)
		p.length = 0
		p.state = nmeaLineTerm
		return true
	}

	p.errorf("semp %s: NMEA bad checksum, got 0x%02x want 0x%02x", p.name, checksum, byte(p.crc))
	return p.reject(data, false)
}

// nmeaLineTerm and its two successors accept CR, LF, CR LF or LF CR between
// sentences, consuming at most one of each in either order before returning
// to the ordinary preamble scan. The byte that breaks the pattern is
// re-offered to firstByte immediately since it is not part of the sentence
// just delivered.
func nmeaLineTerm(p *ParseState, data byte) bool {
	switch data {
	case '\r':
		p.state = nmeaLineTermCR
		return true
	case '\n':
		p.state = nmeaLineTermLF
		return true
	default:
		return firstByte(p, data)
	}
}

func nmeaLineTermCR(p *ParseState, data byte) bool {
	if data == '\n' {
		p.state = firstByte
		return true
	}
	return firstByte(p, data)
}

func nmeaLineTermLF(p *ParseState, data byte) bool {
	if data == '\r' {
		p.state = firstByte
		return true
	}
	return firstByte(p, data)
}

func nmeaStateName(p *ParseState) string {
	switch {
	case stateIs(p, nmeaFindFirstComma):
		return "nmeaFindFirstComma"
	case stateIs(p, nmeaFindAsterisk):
		return "nmeaFindAsterisk"
	case stateIs(p, nmeaChecksumByte1):
		return "nmeaChecksumByte1"
	case stateIs(p, nmeaChecksumByte2):
		return "nmeaChecksumByte2"
	case stateIs(p, nmeaLineTerm), stateIs(p, nmeaLineTermCR), stateIs(p, nmeaLineTermLF):
		return "nmeaLineTerm"
	default:
		return fmt.Sprintf("%s unknown state", "nmea")
	}
}

// NMEASentenceName returns the sentence name (e.g. "GPGGA") of the frame
// most recently delivered by this parser, or "" outside an NMEA callback.
func (p *ParseState) NMEASentenceName() string {
	s, ok := p.scratch.(*nmeaScratch)
	if !ok {
		return ""
	}
	return string(s.name[:s.nameLen])
}

func isAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
