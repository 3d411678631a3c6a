package semp

import (
	"fmt"
	"io"
)

// Unicore binary frames: sync bytes 0xAA 0x44 0xB5, a 24-byte header (message
// ID at offset 4, payload length at offset 6), the payload, and a trailing
// 4-byte reversed CRC-32. Unlike the other binary protocols here, the fold
// is never detached: it keeps running across the four trailing CRC bytes
// themselves, so a valid frame's final running CRC is exactly zero rather
// than needing a separate received-vs-computed comparison.

const unicoreBinaryHeaderBytes = 24
const unicoreBinaryMinimumParseAreaBytes = unicoreBinaryHeaderBytes + 4

type unicoreBinaryScratch struct {
	messageLength int
	remaining     int
}

// UnicoreBinaryParser registers Unicore's binary protocol.
func UnicoreBinaryParser() ParserDescription {
	return ParserDescription{
		Name:                  "Unicore binary",
		Preamble:              unicoreBinaryPreamble,
		StateName:             unicoreBinaryStateName,
		MinimumParseAreaBytes: unicoreBinaryMinimumParseAreaBytes,
		PayloadOffset:         unicoreBinaryHeaderBytes,
		ScratchPrinter:        unicoreBinaryScratchPrinter,
	}
}

func crc32ReversedFold(p *ParseState, data byte) uint32 { return crc32ReversedUpdate(p.crc, data) }

func unicoreBinaryPreamble(p *ParseState, data byte) bool {
	if data != 0xaa {
		return false
	}
	p.scratch = &unicoreBinaryScratch{}
	p.crc = crc32ReversedUpdate(0, data)
	p.crcFold = crc32ReversedFold
	p.state = unicoreBinarySync2
	return true
}

func unicoreBinarySync2(p *ParseState, data byte) bool {
	if data != 0x44 {
		return p.reject(data, true)
	}
	p.state = unicoreBinarySync3
	return true
}

func unicoreBinarySync3(p *ParseState, data byte) bool {
	if data != 0xb5 {
		return p.reject(data, true)
	}
	p.state = unicoreBinaryReadHeader
	return true
}

func unicoreBinaryReadHeader(p *ParseState, data byte) bool {
	if p.length >= unicoreBinaryHeaderBytes {
		s := p.scratch.(*unicoreBinaryScratch)
		s.messageLength = int(p.U16FromOffset(6))
		s.remaining = s.messageLength
		p.state = unicoreBinaryReadData
	}
	return true
}

func unicoreBinaryReadData(p *ParseState, data byte) bool {
	s := p.scratch.(*unicoreBinaryScratch)
	s.remaining--
	if s.remaining == 0 {
		s.remaining = 4
		p.state = unicoreBinaryReadCrc
	}
	return true
}

func unicoreBinaryReadCrc(p *ParseState, data byte) bool {
	s := p.scratch.(*unicoreBinaryScratch)
	s.remaining--
	if s.remaining != 0 {
		return true
	}

	if p.rescueOrReject(p.crc == 0) {
		p.eom(p, p.active)
	} else {
		p.errorf("semp %s: Unicore binary bad CRC, running value 0x%08x", p.name, p.crc)
		if p.invalidData != nil {
			p.invalidData(p, p.buffer[:p.length])
		}
	}

	p.crcFold = nil
	p.state = firstByte
	return false
}

func unicoreBinaryStateName(p *ParseState) string {
	switch {
	case stateIs(p, unicoreBinarySync2):
		return "unicoreBinarySync2"
	case stateIs(p, unicoreBinarySync3):
		return "unicoreBinarySync3"
	case stateIs(p, unicoreBinaryReadHeader):
		return "unicoreBinaryReadHeader"
	case stateIs(p, unicoreBinaryReadData):
		return "unicoreBinaryReadData"
	case stateIs(p, unicoreBinaryReadCrc):
		return "unicoreBinaryReadCrc"
	default:
		return "unknown state"
	}
}

// UnicoreBinaryMessageID returns the message ID field from the header of
// the frame most recently delivered.
func (p *ParseState) UnicoreBinaryMessageID() uint16 {
	if p.length < 6 {
		return 0
	}
	return p.U16FromOffset(4)
}

// unicoreBinaryScratchPrinter prints the in-progress header fields, mirroring
// sempUnicoreBinaryPrintHeader.
func unicoreBinaryScratchPrinter(p *ParseState, w io.Writer) {
	s, ok := p.scratch.(*unicoreBinaryScratch)
	if !ok {
		return
	}
	fmt.Fprint(w, "  Unicore binary header:\n")
	writeHexField(w, "message id", uint64(p.UnicoreBinaryMessageID()), 4)
	writeDecimalField(w, "message length", int64(s.messageLength), 6)
	writeDecimalField(w, "bytes remaining", int64(s.remaining), 6)
}
