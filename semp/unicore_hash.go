package semp

import "strings"

// Unicore "#" sentences look like #BESTPOSA,...,...*7F2AE103\r\n — a hash,
// an alphanumeric sentence name, a comma-separated body terminated by an
// asterisk, and a checksum of either two hex digits (an XOR, same algorithm
// as NMEA) or eight hex digits (a reversed CRC-32 over everything between
// the hash and the asterisk). Sentences use the eight-digit CRC-32 form by
// default; sentences whose name contains "MODE" use the two-digit XOR form.

const unicoreHashSentenceNameBytes = 16
const unicoreHashBufferOverhead = 3 // CR, LF, NUL

type unicoreHashScratch struct {
	name           [unicoreHashSentenceNameBytes]byte
	nameLen        int
	checksumBytes  int
	bytesRemaining int
}

// UnicoreHashParser registers Unicore's "#" text sentence protocol.
func UnicoreHashParser() ParserDescription {
	return ParserDescription{
		Name:                  "Unicore hash",
		Preamble:              unicoreHashPreamble,
		StateName:             unicoreHashStateName,
		MinimumParseAreaBytes: unicoreHashBufferOverhead + unicoreHashSentenceNameBytes,
	}
}

func unicoreHashPreamble(p *ParseState, data byte) bool {
	if data != '#' {
		return false
	}
	p.scratch = &unicoreHashScratch{}
	p.crc = 0
	p.state = unicoreHashFindFirstComma
	return true
}

func unicoreHashFindFirstComma(p *ParseState, data byte) bool {
	s := p.scratch.(*unicoreHashScratch)
	p.crc ^= uint32(data)

	if data == ',' && s.nameLen > 0 {
		name := strings.ToUpper(string(s.name[:s.nameLen]))
		s.checksumBytes = 8
		if strings.Contains(name, "MODE") {
			s.checksumBytes = 2
		}
		p.state = unicoreHashFindAsterisk
		return true
	}

	if !isAlnum(data) {
		p.errorf("semp %s: Unicore hash (#) invalid sentence name character 0x%02x", p.name, data)
		return p.reject(data, true)
	}
	// -1 reserves a slot the way NMEA's name cap does.
	if s.nameLen >= len(s.name)-1 {
		p.errorf("semp %s: Unicore hash (#) sentence name too long", p.name)
		return p.reject(data, true)
	}
	s.name[s.nameLen] = data
	s.nameLen++
	return true
}

func unicoreHashFindAsterisk(p *ParseState, data byte) bool {
	s := p.scratch.(*unicoreHashScratch)
	if data == '*' {
		s.bytesRemaining = s.checksumBytes
		p.state = unicoreHashChecksumByte
		return true
	}

	p.crc ^= uint32(data)
	if p.length+unicoreHashBufferOverhead > len(p.buffer) {
		p.errorf("semp %s: Unicore hash (#) sentence too long for buffer", p.name)
		return p.reject(data, true)
	}
	return true
}

func unicoreHashChecksumByte(p *ParseState, data byte) bool {
	s := p.scratch.(*unicoreHashScratch)
	s.bytesRemaining--

	if asciiToNibble(data) < 0 {
		p.errorf("semp %s: Unicore hash (#) invalid checksum character 0x%02x", p.name, data)
		return p.reject(data, true)
	}
	if s.bytesRemaining == 0 {
		p.state = unicoreHashLineTermination
	}
	return true
}

// unicoreHashLineTermination, unicoreHashLineFeed and unicoreHashCarriageReturn
// together accept CR, LF, CR LF or LF CR after the checksum, validating the
// sentence exactly once regardless of which pattern (or none) appears: the
// byte that breaks the pattern is re-offered to firstByte immediately.
func unicoreHashLineTermination(p *ParseState, data byte) bool {
	p.length--
	switch data {
	case '\r':
		p.state = unicoreHashLineFeed
		return true
	case '\n':
		p.state = unicoreHashCarriageReturn
		return true
	}
	p.unicoreHashValidateChecksum()
	return firstByte(p, data)
}

func unicoreHashLineFeed(p *ParseState, data byte) bool {
	p.length--
	if data == '\n' {
		p.unicoreHashValidateChecksum()
		p.state = firstByte
		return true
	}
	p.unicoreHashValidateChecksum()
	return firstByte(p, data)
}

func unicoreHashCarriageReturn(p *ParseState, data byte) bool {
	p.length--
	if data == '\r' {
		p.unicoreHashValidateChecksum()
		p.state = firstByte
		return true
	}
	p.unicoreHashValidateChecksum()
	return firstByte(p, data)
}

// unicoreHashValidateChecksum dispatches to the two-digit XOR check or the
// eight-digit CRC-32 check depending on what the sentence name selected,
// and delivers the sentence (with a trailing CR LF and an uncounted NUL) on
// success.
func (p *ParseState) unicoreHashValidateChecksum() {
	s := p.scratch.(*unicoreHashScratch)
	if s.checksumBytes > 2 {
		p.unicoreHashValidateCRC(s)
		return
	}

	checksum := asciiToNibble(p.buffer[p.length-2])<<4 | asciiToNibble(p.buffer[p.length-1])
	if p.rescueOrReject(checksum == int(p.crc)) {
		p.buffer[p.length] = '\r'
		p.length++
		p.buffer[p.length] = '\n'
		p.length++
		p.buffer[p.length] = 0
		p.eom(p, p.active)
		return
	}

	p.errorf("semp %s: Unicore hash (#) %s, bad checksum, got 0x%02x want 0x%02x",
		p.name, s.name[:s.nameLen], checksum, byte(p.crc))
	if p.invalidData != nil {
		p.invalidData(p, p.buffer[:p.length])
	}
}

// unicoreHashValidateCRC checks the eight-digit CRC-32 form. Unlike the
// two-digit checksum it accepts no bad-CRC rescue: grounded directly in the
// original validator, which never consulted one here either.
func (p *ParseState) unicoreHashValidateCRC(s *unicoreHashScratch) {
	var crc uint32
	i := 1
	for p.buffer[i] != '*' {
		crc = crc32ReversedUpdate(crc, p.buffer[i])
		i++
	}

	var crcRx uint32
	for k := 0; k < 8; k++ {
		crcRx = (crcRx << 4) | uint32(asciiToNibble(p.buffer[i+1+k]))
	}

	if crc != crcRx {
		p.errorf("semp %s: Unicore hash (#) %s, bad CRC, received 0x%08x computed 0x%08x",
			p.name, s.name[:s.nameLen], crcRx, crc)
		if p.invalidData != nil {
			p.invalidData(p, p.buffer[:p.length])
		}
		return
	}

	if p.length+unicoreHashBufferOverhead > len(p.buffer) {
		p.errorf("semp %s: Unicore hash (#) sentence too long for buffer", p.name)
		if p.invalidData != nil {
			p.invalidData(p, p.buffer[:p.length])
		}
		p.state = firstByte
		return
	}

	p.buffer[p.length] = '\r'
	p.length++
	p.buffer[p.length] = '\n'
	p.length++
	p.buffer[p.length] = 0
	p.eom(p, p.active)
}

func unicoreHashStateName(p *ParseState) string {
	switch {
	case stateIs(p, unicoreHashFindFirstComma):
		return "unicoreHashFindFirstComma"
	case stateIs(p, unicoreHashFindAsterisk):
		return "unicoreHashFindAsterisk"
	case stateIs(p, unicoreHashChecksumByte):
		return "unicoreHashChecksumByte"
	case stateIs(p, unicoreHashLineTermination),
		stateIs(p, unicoreHashLineFeed),
		stateIs(p, unicoreHashCarriageReturn):
		return "unicoreHashLineTermination"
	default:
		return "unknown state"
	}
}

// UnicoreHashSentenceName returns the sentence name of the frame most
// recently delivered.
func (p *ParseState) UnicoreHashSentenceName() string {
	s, ok := p.scratch.(*unicoreHashScratch)
	if !ok {
		return ""
	}
	return string(s.name[:s.nameLen])
}
