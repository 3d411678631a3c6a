package semp

// UBX frames: sync bytes 0xB5 0x62, a class byte, an ID byte, a 16-bit
// little-endian payload length, the payload, and a two-byte Fletcher-8
// checksum (RFC 1145) folded over the class, ID, length and payload bytes —
// not over the sync bytes, and not over the checksum bytes themselves.

const ubloxMinimumParseAreaBytes = 8 // sync(2) + class + id + length(2) + checksum(2)

type ubloxScratch struct {
	remaining int
	receivedA byte
}

// UBXParser registers the u-blox UBX binary protocol.
func UBXParser() ParserDescription {
	return ParserDescription{
		Name:                  "UBX",
		Preamble:              ubloxSync1,
		StateName:             ubloxStateName,
		MinimumParseAreaBytes: ubloxMinimumParseAreaBytes,
		PayloadOffset:         6,
	}
}

func fletcher8Fold(p *ParseState, data byte) uint32 {
	ckA := byte(p.crc)
	ckB := byte(p.crc >> 8)
	ckA, ckB = fletcher8Step(ckA, ckB, data)
	return uint32(ckA) | uint32(ckB)<<8
}

func ubloxSync1(p *ParseState, data byte) bool {
	if data != 0xb5 {
		return false
	}
	p.scratch = &ubloxScratch{}
	p.crc = 0
	p.state = ubloxSync2
	return true
}

func ubloxSync2(p *ParseState, data byte) bool {
	if data != 0x62 {
		p.errorf("semp %s: UBX second sync byte 0x%02x, want 0x62", p.name, data)
		return p.reject(data, true)
	}
	p.crcFold = fletcher8Fold
	p.state = ubloxClass
	return true
}

func ubloxClass(p *ParseState, data byte) bool {
	p.state = ubloxID
	return true
}

func ubloxID(p *ParseState, data byte) bool {
	p.state = ubloxLength1
	return true
}

func ubloxLength1(p *ParseState, data byte) bool {
	p.scratch.(*ubloxScratch).remaining = int(data)
	p.state = ubloxLength2
	return true
}

func ubloxLength2(p *ParseState, data byte) bool {
	s := p.scratch.(*ubloxScratch)
	s.remaining |= int(data) << 8
	if s.remaining == 0 {
		p.crcFold = nil
		p.state = ubloxChecksumA
	} else {
		p.state = ubloxPayload
	}
	return true
}

func ubloxPayload(p *ParseState, data byte) bool {
	s := p.scratch.(*ubloxScratch)
	s.remaining--
	if s.remaining == 0 {
		p.crcFold = nil
		p.state = ubloxChecksumA
	}
	return true
}

func ubloxChecksumA(p *ParseState, data byte) bool {
	p.scratch.(*ubloxScratch).receivedA = data
	p.state = ubloxChecksumB
	return true
}

func ubloxChecksumB(p *ParseState, data byte) bool {
	s := p.scratch.(*ubloxScratch)
	ckA := byte(p.crc)
	ckB := byte(p.crc >> 8)

	if p.rescueOrReject(s.receivedA == ckA && data == ckB) {
		p.eom(p, p.active)
		p.state = firstByte
		return true
	}

	p.errorf("semp %s: UBX bad checksum, got %02x%02x want %02x%02x", p.name, s.receivedA, data, ckA, ckB)
	return p.reject(data, false)
}

func ubloxStateName(p *ParseState) string {
	switch {
	case stateIs(p, ubloxSync2):
		return "ubloxSync2"
	case stateIs(p, ubloxClass):
		return "ubloxClass"
	case stateIs(p, ubloxID):
		return "ubloxID"
	case stateIs(p, ubloxLength1):
		return "ubloxLength1"
	case stateIs(p, ubloxLength2):
		return "ubloxLength2"
	case stateIs(p, ubloxPayload):
		return "ubloxPayload"
	case stateIs(p, ubloxChecksumA):
		return "ubloxChecksumA"
	case stateIs(p, ubloxChecksumB):
		return "ubloxChecksumB"
	default:
		return "unknown state"
	}
}

// UBXMessageClass returns the class byte of the frame most recently
// delivered.
func (p *ParseState) UBXMessageClass() byte {
	if p.length < 3 {
		return 0
	}
	return p.buffer[2]
}

// UBXMessageID returns the ID byte of the frame most recently delivered.
func (p *ParseState) UBXMessageID() byte {
	if p.length < 4 {
		return 0
	}
	return p.buffer[3]
}

// UBXMessageNumber packs class and ID into one value, the same (class<<8)|ID
// encoding u-center uses to label message types.
func (p *ParseState) UBXMessageNumber() int {
	return (int(p.UBXMessageClass()) << 8) | int(p.UBXMessageID())
}
