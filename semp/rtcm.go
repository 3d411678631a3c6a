package semp

// RTCM10403 frames: a 0xD3 preamble, six reserved bits that must be zero, a
// 10-bit payload length, the payload itself, and a trailing 3-byte CRC-24Q
// covering everything from the preamble through the last payload byte. The
// running CRC is folded automatically by ParseNextByte via crcFold while the
// header and payload are being read, then detached before the three CRC
// bytes themselves arrive so they are compared against, not folded into,
// the running value.

const rtcmMaxPayloadLength = 1023
const rtcmMinimumParseAreaBytes = 3 + rtcmMaxPayloadLength + 3

type rtcmScratch struct {
	remaining int
	crcBytes  [3]byte
}

// RTCMParser registers the RTCM 10403 binary differential-correction
// protocol.
func RTCMParser() ParserDescription {
	return ParserDescription{
		Name:                  "RTCM",
		Preamble:              rtcmPreamble,
		StateName:             rtcmStateName,
		MinimumParseAreaBytes: rtcmMinimumParseAreaBytes,
		PayloadOffset:         3,
	}
}

func crc24qFold(p *ParseState, data byte) uint32 { return crc24qUpdate(p.crc, data) }

func rtcmPreamble(p *ParseState, data byte) bool {
	if data != 0xd3 {
		return false
	}
	p.scratch = &rtcmScratch{}
	p.crc = crc24qUpdate(0, data)
	p.crcFold = crc24qFold
	p.state = rtcmReadLength1
	return true
}

func rtcmReadLength1(p *ParseState, data byte) bool {
	if data&0xfc != 0 {
		p.errorf("semp %s: RTCM reserved length bits are not zero", p.name)
		return p.reject(data, true)
	}
	s := p.scratch.(*rtcmScratch)
	s.remaining = int(data&0x3) << 8
	p.state = rtcmReadLength2
	return true
}

func rtcmReadLength2(p *ParseState, data byte) bool {
	s := p.scratch.(*rtcmScratch)
	s.remaining |= int(data)
	if s.remaining == 0 {
		p.crcFold = nil
		p.state = rtcmReadCrc1
	} else {
		p.state = rtcmReadData
	}
	return true
}

func rtcmReadData(p *ParseState, data byte) bool {
	s := p.scratch.(*rtcmScratch)
	s.remaining--
	if s.remaining == 0 {
		p.crcFold = nil
		p.state = rtcmReadCrc1
	}
	return true
}

func rtcmReadCrc1(p *ParseState, data byte) bool {
	p.scratch.(*rtcmScratch).crcBytes[0] = data
	p.state = rtcmReadCrc2
	return true
}

func rtcmReadCrc2(p *ParseState, data byte) bool {
	p.scratch.(*rtcmScratch).crcBytes[1] = data
	p.state = rtcmReadCrc3
	return true
}

func rtcmReadCrc3(p *ParseState, data byte) bool {
	s := p.scratch.(*rtcmScratch)
	s.crcBytes[2] = data
	received := uint32(s.crcBytes[0])<<16 | uint32(s.crcBytes[1])<<8 | uint32(s.crcBytes[2])

	if p.rescueOrReject(received == p.crc) {
		p.eom(p, p.active)
		p.state = firstByte
		return true
	}

	p.errorf("semp %s: RTCM bad CRC-24Q, got 0x%06x want 0x%06x", p.name, received, p.crc)
	return p.reject(data, false)
}

func rtcmStateName(p *ParseState) string {
	switch {
	case stateIs(p, rtcmReadLength1):
		return "rtcmReadLength1"
	case stateIs(p, rtcmReadLength2):
		return "rtcmReadLength2"
	case stateIs(p, rtcmReadData):
		return "rtcmReadData"
	case stateIs(p, rtcmReadCrc1):
		return "rtcmReadCrc1"
	case stateIs(p, rtcmReadCrc2):
		return "rtcmReadCrc2"
	case stateIs(p, rtcmReadCrc3):
		return "rtcmReadCrc3"
	default:
		return "unknown state"
	}
}

// RTCMMessageNumber returns the 12-bit message type (e.g. 1005, 1074) from
// the start of the payload of the frame most recently delivered.
func (p *ParseState) RTCMMessageNumber() int {
	base := p.payloadBase()
	if p.length < base+2 {
		return -1
	}
	return (int(p.buffer[base])<<4) | (int(p.buffer[base+1]) >> 4)
}

// RTCMUnsignedBits extracts numBits bits starting bitOffset bits into the
// payload (MSB first within each byte), the same bit layout every RTCM
// message body definition is specified against.
func (p *ParseState) RTCMUnsignedBits(bitOffset, numBits int) uint64 {
	base := p.payloadBase()
	var v uint64
	for i := 0; i < numBits; i++ {
		bitPos := bitOffset + i
		byteIdx := base + bitPos/8
		bitInByte := 7 - uint(bitPos%8)
		bit := (p.buffer[byteIdx] >> bitInByte) & 1
		v = (v << 1) | uint64(bit)
	}
	return v
}

// RTCMSignedBits is RTCMUnsignedBits with the result sign-extended from its
// top bit.
func (p *ParseState) RTCMSignedBits(bitOffset, numBits int) int64 {
	v := p.RTCMUnsignedBits(bitOffset, numBits)
	if numBits < 64 && numBits > 0 && v&(uint64(1)<<(numBits-1)) != 0 {
		v |= ^uint64(0) << numBits
	}
	return int64(v)
}
