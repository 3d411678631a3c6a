package semp

// Septentrio SBF frames: sync bytes '$' '@', a 2-byte CCITT-16 CRC, a 2-byte
// ID field (13-bit block number, 3-bit revision), a 2-byte length that must
// be a multiple of four and counts the whole frame including the 8-byte
// header, and a body of length-8 bytes. The CRC covers the ID, length and
// body — not the sync bytes, and not the CRC field itself.
//
// Block 4097 carries an encapsulated NMEA or RTCMv3 frame inside its body;
// SBFIsEncapsulatedNMEA/SBFIsEncapsulatedRTCMv3/SBFEncapsulatedPayload
// expose that sub-frame so a caller can hand it to an independent NMEA or
// RTCM ParseState.

const sbfMinimumParseAreaBytes = 8

const sbfEncapsulationBlockID = 4097

type sbfScratch struct {
	expectedCRC uint16
	sbfID       uint16
	sbfIDrev    uint8
	length      int
	remaining   int
}

// SBFParser registers the Septentrio SBF binary protocol.
func SBFParser() ParserDescription {
	return ParserDescription{
		Name:                  "SBF",
		Preamble:              sbfPreamble,
		StateName:             sbfStateName,
		MinimumParseAreaBytes: sbfMinimumParseAreaBytes,
		PayloadOffset:         8,
	}
}

func ccitt16Fold(p *ParseState, data byte) uint32 { return uint32(ccitt16Update(uint16(p.crc), data)) }

// sbfReject is SBF's rejection path: the secondary hand-off sink sees the
// rejected bytes first, then the generic reject runs its usual disposition.
func (p *ParseState) sbfReject(data byte, rescan bool) bool {
	if p.sbfInvalidData != nil {
		p.sbfInvalidData(p, p.buffer[:p.length])
	}
	return p.reject(data, rescan)
}

func sbfPreamble(p *ParseState, data byte) bool {
	if data != '$' {
		return false
	}
	p.scratch = &sbfScratch{}
	p.state = sbfPreamble2
	return true
}

func sbfPreamble2(p *ParseState, data byte) bool {
	if data == '@' {
		p.state = sbfCRC1
		return true
	}
	p.errorf("semp %s: SBF invalid second preamble byte 0x%02x", p.name, data)
	return p.sbfReject(data, true)
}

func sbfCRC1(p *ParseState, data byte) bool {
	p.scratch.(*sbfScratch).expectedCRC = uint16(data)
	p.state = sbfCRC2
	return true
}

func sbfCRC2(p *ParseState, data byte) bool {
	s := p.scratch.(*sbfScratch)
	s.expectedCRC |= uint16(data) << 8
	p.crc = 0
	p.crcFold = ccitt16Fold
	p.state = sbfID1
	return true
}

func sbfID1(p *ParseState, data byte) bool {
	p.scratch.(*sbfScratch).sbfID = uint16(data)
	p.state = sbfID2
	return true
}

func sbfID2(p *ParseState, data byte) bool {
	s := p.scratch.(*sbfScratch)
	s.sbfID |= uint16(data) << 8
	s.sbfID &= 0x1fff
	s.sbfIDrev = data >> 5
	p.state = sbfLengthLSB
	return true
}

func sbfLengthLSB(p *ParseState, data byte) bool {
	p.scratch.(*sbfScratch).length = int(data)
	p.state = sbfLengthMSB
	return true
}

func sbfLengthMSB(p *ParseState, data byte) bool {
	s := p.scratch.(*sbfScratch)
	s.length |= int(data) << 8

	if s.length%4 != 0 {
		p.errorf("semp %s: SBF block %d, length %d not a multiple of 4", p.name, s.sbfID, s.length)
		return p.sbfReject(data, true)
	}

	s.remaining = s.length - 8
	p.state = sbfReadBytes
	return true
}

func sbfReadBytes(p *ParseState, data byte) bool {
	s := p.scratch.(*sbfScratch)
	s.remaining--
	if s.remaining != 0 {
		return true
	}

	p.crcFold = nil
	p.state = firstByte

	if p.rescueOrReject(uint16(p.crc) == s.expectedCRC) {
		p.eom(p, p.active)
		return false
	}

	p.errorf("semp %s: SBF block %d, bad CRC", p.name, s.sbfID)
	if p.sbfInvalidData != nil {
		p.sbfInvalidData(p, p.buffer[:p.length])
	}
	if p.invalidData != nil {
		p.invalidData(p, p.buffer[:p.length])
	}
	return false
}

func sbfStateName(p *ParseState) string {
	switch {
	case stateIs(p, sbfPreamble2):
		return "sbfPreamble2"
	case stateIs(p, sbfCRC1):
		return "sbfCRC1"
	case stateIs(p, sbfCRC2):
		return "sbfCRC2"
	case stateIs(p, sbfID1):
		return "sbfID1"
	case stateIs(p, sbfID2):
		return "sbfID2"
	case stateIs(p, sbfLengthLSB):
		return "sbfLengthLSB"
	case stateIs(p, sbfLengthMSB):
		return "sbfLengthMSB"
	case stateIs(p, sbfReadBytes):
		return "sbfReadBytes"
	default:
		return "unknown state"
	}
}

// SBFBlockNumber returns the 13-bit block number of the frame most recently
// delivered.
func (p *ParseState) SBFBlockNumber() uint16 {
	s, ok := p.scratch.(*sbfScratch)
	if !ok {
		return 0
	}
	return s.sbfID
}

// SBFBlockRevision returns the 3-bit revision of the frame most recently
// delivered.
func (p *ParseState) SBFBlockRevision() uint8 {
	s, ok := p.scratch.(*sbfScratch)
	if !ok {
		return 0
	}
	return s.sbfIDrev
}

// SBFIsEncapsulatedNMEA reports whether the frame most recently delivered is
// an ExtEvent block (4097) wrapping an NMEA sentence.
func (p *ParseState) SBFIsEncapsulatedNMEA() bool {
	return p.SBFBlockNumber() == sbfEncapsulationBlockID && p.length > 14 && p.buffer[14] == 4
}

// SBFIsEncapsulatedRTCMv3 reports whether the frame most recently delivered
// is an ExtEvent block (4097) wrapping an RTCMv3 message.
func (p *ParseState) SBFIsEncapsulatedRTCMv3() bool {
	return p.SBFBlockNumber() == sbfEncapsulationBlockID && p.length > 14 && p.buffer[14] == 2
}

// SBFEncapsulatedPayload returns the wrapped sub-frame's bytes from an
// ExtEvent block, or nil if this frame is not one.
func (p *ParseState) SBFEncapsulatedPayload() []byte {
	if p.SBFBlockNumber() != sbfEncapsulationBlockID || p.length < 20 {
		return nil
	}
	n := int(p.U16FromOffset(16))
	if 20+n > p.length {
		return nil
	}
	return p.buffer[20 : 20+n]
}
