package semp

import (
	"encoding/binary"
	"math"
)

// Typed little-endian accessors over the message buffer. Each has a raw
// "FromOffset" variant that ignores the active parser's PayloadOffset, and a
// bare variant that adds it — so UBX field access, for example, can be
// written relative to the start of the payload (offset 6) instead of the
// start of the frame.

func (p *ParseState) payloadBase() int {
	if p.active < 0 || p.active >= len(p.parsers) {
		return 0
	}
	return p.parsers[p.active].PayloadOffset
}

func (p *ParseState) U8FromOffset(offset int) uint8 { return p.buffer[offset] }
func (p *ParseState) U8(offset int) uint8            { return p.U8FromOffset(p.payloadBase() + offset) }

func (p *ParseState) I8FromOffset(offset int) int8 { return int8(p.U8FromOffset(offset)) }
func (p *ParseState) I8(offset int) int8           { return int8(p.U8(offset)) }

func (p *ParseState) U16FromOffset(offset int) uint16 {
	return binary.LittleEndian.Uint16(p.buffer[offset : offset+2])
}
func (p *ParseState) U16(offset int) uint16 { return p.U16FromOffset(p.payloadBase() + offset) }

func (p *ParseState) I16FromOffset(offset int) int16 { return int16(p.U16FromOffset(offset)) }
func (p *ParseState) I16(offset int) int16           { return int16(p.U16(offset)) }

func (p *ParseState) U32FromOffset(offset int) uint32 {
	return binary.LittleEndian.Uint32(p.buffer[offset : offset+4])
}
func (p *ParseState) U32(offset int) uint32 { return p.U32FromOffset(p.payloadBase() + offset) }

func (p *ParseState) I32FromOffset(offset int) int32 { return int32(p.U32FromOffset(offset)) }
func (p *ParseState) I32(offset int) int32           { return int32(p.U32(offset)) }

func (p *ParseState) U64FromOffset(offset int) uint64 {
	return binary.LittleEndian.Uint64(p.buffer[offset : offset+8])
}
func (p *ParseState) U64(offset int) uint64 { return p.U64FromOffset(p.payloadBase() + offset) }

func (p *ParseState) I64FromOffset(offset int) int64 { return int64(p.U64FromOffset(offset)) }
func (p *ParseState) I64(offset int) int64           { return int64(p.U64(offset)) }

func (p *ParseState) F32FromOffset(offset int) float32 {
	return math.Float32frombits(p.U32FromOffset(offset))
}
func (p *ParseState) F32(offset int) float32 { return p.F32FromOffset(p.payloadBase() + offset) }

func (p *ParseState) F64FromOffset(offset int) float64 {
	return math.Float64frombits(p.U64FromOffset(offset))
}
func (p *ParseState) F64(offset int) float64 { return p.F64FromOffset(p.payloadBase() + offset) }

// StringFromOffset returns the NUL-terminated string starting at offset, or
// the rest of the buffer if no NUL is found.
func (p *ParseState) StringFromOffset(offset int) string {
	end := offset
	for end < len(p.buffer) && p.buffer[end] != 0 {
		end++
	}
	return string(p.buffer[offset:end])
}

// String returns the NUL-terminated string starting at the active parser's
// payload offset plus offset.
func (p *ParseState) String(offset int) string { return p.StringFromOffset(p.payloadBase() + offset) }
