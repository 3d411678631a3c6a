package semp

import (
	"fmt"
	"io"
	"reflect"
)

// MinimumBufferLength is the smallest message buffer Begin allocates when
// Config.Buffer is nil, mirroring SEMP_MINIMUM_BUFFER_LENGTH. A caller-supplied
// buffer is only checked against the registered parsers' minimum sizes.
const MinimumBufferLength = 32

// stateFunc is one state of one parser's state machine. Its return value is
// advisory only and ParseNextByte ignores it — termination is signalled
// exclusively by setting ParseState.state back to firstByte.
type stateFunc func(*ParseState, byte) bool

// PreambleFunc decides whether data could begin a frame for one parser. It
// returns true and sets ParseState.state to the parser's next state when it
// accepts the byte.
type PreambleFunc func(p *ParseState, data byte) bool

// EOMCallback is invoked once per validated frame. typ is the index into the
// parser table that produced the frame.
type EOMCallback func(p *ParseState, typ int)

// BadCRCCallback may rescue a frame whose checksum/CRC failed to validate.
// Returning true tells the dispatcher to treat the frame as good anyway;
// returning false (or leaving the callback nil) means the frame is discarded.
type BadCRCCallback func(p *ParseState) bool

// InvalidDataCallback receives bytes that no registered parser is currently
// willing to consume, byte-for-byte, for fall-through pipelines.
type InvalidDataCallback func(p *ParseState, data []byte)

// ParserDescription registers one protocol's entry point with Begin.
type ParserDescription struct {
	// Name identifies the parser in diagnostics and is returned by
	// ActiveParserName.
	Name string

	// Preamble is the parser's first_byte predicate.
	Preamble PreambleFunc

	// StateName, if set, translates the active state function into a
	// human-readable name for diagnostics. Built-in parsers supply this.
	StateName func(p *ParseState) string

	// ScratchPrinter, if set, dumps the parser's scratch record for
	// debugging.
	ScratchPrinter func(p *ParseState, w io.Writer)

	// MinimumParseAreaBytes is the smallest message buffer this parser
	// can usefully work with.
	MinimumParseAreaBytes int

	// ScratchPadBytes is the scratch storage this parser needs from the
	// generic scratch pad area (only consulted by user-supplied parsers;
	// the built-in parsers keep their scratch directly on ParseState).
	ScratchPadBytes int

	// PayloadOffset is added by the bare payload accessors (U8, U16, ...)
	// so that field access can be expressed relative to the start of a
	// protocol's payload rather than the start of the frame; the
	// ...FromOffset variants ignore it.
	PayloadOffset int
}

// ParseState is the mutable state of a running parser. One ParseState
// processes exactly one logical byte stream; callers must serialise access
// if more than one goroutine might otherwise touch it concurrently.
type ParseState struct {
	name    string
	parsers []ParserDescription

	state  stateFunc
	active int // index into parsers, or len(parsers) while searching

	eom         EOMCallback
	badCRC      BadCRCCallback
	invalidData InvalidDataCallback

	// sbfInvalidData is a second, SBF-specific invalid-data sink. SBF
	// framing is commonly layered underneath a SPARTN parser (Septentrio
	// receivers emit SPARTN correction data wrapped in SBF blocks), so SBF
	// rejections are offered to this hand-off sink in addition to the
	// generic one, letting a caller re-drive a separate SPARTN ParseState
	// with exactly the bytes SBF gave up on.
	sbfInvalidData InvalidDataCallback

	crc     uint32
	crcFold func(p *ParseState, data byte) uint32

	buffer []byte
	length int

	scratchPad []byte // generic scratch area for user-supplied parsers
	scratch    any     // typed scratch record for the active built-in parser

	errOutput   io.Writer
	debugOutput io.Writer

	// AbortOnNonPrintable makes the NMEA parser abandon a frame the moment
	// a non-printable byte (outside 0x20..0x7E) appears in the body, rather
	// than letting the checksum stage reject it. The Unicore hash parser
	// does not consult it.
	AbortOnNonPrintable bool

	stopped bool
}

// Config supplies Begin with the arguments needed to build a ParseState.
type Config struct {
	// Name identifies this parse table in diagnostics; required.
	Name string

	// Parsers lists the protocols to recognise, in priority order: the
	// earlier a parser appears, the more priority its preamble predicate
	// has when two parsers would both accept the same byte.
	Parsers []ParserDescription

	// Buffer is the caller-owned message buffer. If nil, Begin allocates
	// one of BufferLength bytes.
	Buffer []byte

	// BufferLength sizes an allocated buffer when Buffer is nil.
	BufferLength int

	// EOM is invoked once per validated frame; required.
	EOM EOMCallback

	// ErrorOutput, if set, receives one line of diagnostic text per
	// recoverable parse error.
	ErrorOutput io.Writer

	// DebugOutput, if set, receives verbose per-byte/per-state tracing.
	DebugOutput io.Writer

	// BadCRC, if set, may rescue frames that otherwise fail checksum or
	// CRC validation.
	BadCRC BadCRCCallback
}

// Begin validates cfg and constructs a ParseState ready to receive bytes via
// ParseNextByte/ParseNextBytes. It is the only operation in this package
// that returns an error; every other parse failure is local and recoverable,
// reported only through ErrorOutput and the invalid-data callback.
func Begin(cfg Config) (*ParseState, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("semp: a parser table name is required")
	}
	if len(cfg.Parsers) == 0 {
		return nil, fmt.Errorf("semp: %s: at least one parser must be registered", cfg.Name)
	}
	if cfg.EOM == nil {
		return nil, fmt.Errorf("semp: %s: an EOM callback is required", cfg.Name)
	}

	buf := cfg.Buffer
	if buf == nil {
		length := cfg.BufferLength
		if length < MinimumBufferLength {
			length = MinimumBufferLength
		}
		buf = make([]byte, length)
	}

	maxScratch := 0
	maxMinArea := 0
	for _, pd := range cfg.Parsers {
		if pd.Preamble == nil {
			return nil, fmt.Errorf("semp: %s: parser %q has no preamble predicate", cfg.Name, pd.Name)
		}
		if pd.ScratchPadBytes > maxScratch {
			maxScratch = pd.ScratchPadBytes
		}
		if pd.MinimumParseAreaBytes > maxMinArea {
			maxMinArea = pd.MinimumParseAreaBytes
		}
	}
	if len(buf) < maxMinArea {
		return nil, fmt.Errorf("semp: %s: buffer length %d is smaller than the largest parser's minimum of %d bytes",
			cfg.Name, len(buf), maxMinArea)
	}

	p := &ParseState{
		name:        cfg.Name,
		parsers:     cfg.Parsers,
		buffer:      buf,
		scratchPad:  make([]byte, maxScratch),
		eom:         cfg.EOM,
		badCRC:      cfg.BadCRC,
		errOutput:   cfg.ErrorOutput,
		debugOutput: cfg.DebugOutput,
		active:      len(cfg.Parsers),
	}
	p.state = firstByte

	p.debugf("semp: %s: %d parser(s) registered, buffer %d bytes, scratch %d bytes",
		p.name, len(p.parsers), len(p.buffer), len(p.scratchPad))

	return p, nil
}

// firstByte is both the dispatcher and the default active state. Every
// registered parser's Preamble predicate is tried in registration order; the
// first to accept latches its index as the active parser and its chosen
// next state as the active state function. When no predicate accepts, the
// byte is handed to the invalid-data callback (if any) and the search
// continues on the next byte.
func firstByte(p *ParseState, data byte) bool {
	p.crc = 0
	p.crcFold = nil
	p.scratch = nil
	p.length = 0
	p.buffer[0] = data
	p.length = 1
	p.active = len(p.parsers)
	p.state = firstByte

	for i := range p.parsers {
		if p.parsers[i].Preamble(p, data) {
			p.active = i
			return true
		}
	}

	if p.invalidData != nil {
		p.invalidData(p, p.buffer[:p.length])
	}
	return false
}

// ParseNextByte advances the parser by exactly one state given the next
// octet from the stream. Every callback registered on p (EOM, bad-CRC,
// invalid-data) is invoked synchronously on this call's stack before it
// returns.
func (p *ParseState) ParseNextByte(data byte) {
	if p.stopped {
		return
	}

	if p.length >= len(p.buffer) {
		p.errorf("semp %s: message too long, increase the buffer size > %d", p.name, len(p.buffer))
		if p.invalidData != nil {
			p.invalidData(p, p.buffer[:p.length])
		}
		firstByte(p, data)
		return
	}

	p.buffer[p.length] = data
	p.length++

	if p.crcFold != nil {
		p.crc = p.crcFold(p, data)
	}

	p.state(p, data)
}

// ParseNextBytes feeds an entire slice through ParseNextByte in order. The
// EOM callback may fire zero or more times during one call, each time with a
// frame that ended at a prior byte in data.
func (p *ParseState) ParseNextBytes(data []byte) {
	for _, b := range data {
		p.ParseNextByte(b)
	}
}

// Stop detaches p's callbacks and marks it unusable. The buffer is
// caller-owned, so unlike the C original there is nothing to free; Stop
// exists so a caller holding a stale reference cannot keep driving a
// parser its owner considers finished.
func (p *ParseState) Stop() {
	if p == nil {
		return
	}
	p.stopped = true
	p.eom = nil
	p.badCRC = nil
	p.invalidData = nil
}

// SetInvalidDataCallback installs or clears the sink for bytes that no
// registered parser currently accepts.
func (p *ParseState) SetInvalidDataCallback(cb InvalidDataCallback) {
	p.invalidData = cb
}

// SetSBFInvalidDataCallback installs or clears the secondary hand-off sink
// the SBF parser offers rejected frames to, alongside the generic
// invalid-data callback.
func (p *ParseState) SetSBFInvalidDataCallback(cb InvalidDataCallback) {
	p.sbfInvalidData = cb
}

// EnableDebugOutput directs verbose tracing to w.
func (p *ParseState) EnableDebugOutput(w io.Writer) { p.debugOutput = w }

// DisableDebugOutput stops verbose tracing.
func (p *ParseState) DisableDebugOutput() { p.debugOutput = nil }

// EnableErrorOutput directs recoverable-error diagnostics to w.
func (p *ParseState) EnableErrorOutput(w io.Writer) { p.errOutput = w }

// DisableErrorOutput stops recoverable-error diagnostics.
func (p *ParseState) DisableErrorOutput() { p.errOutput = nil }

// Name returns the parser table's configured name.
func (p *ParseState) Name() string { return p.name }

// Length returns the number of valid bytes currently in the message buffer.
// It is only meaningful to call this from within the EOM, bad-CRC or
// invalid-data callbacks; by the time ParseNextByte returns, length has been
// reset for the next frame.
func (p *ParseState) Length() int { return p.length }

// Buffer returns the message bytes accumulated so far. The returned slice
// aliases internal storage and is only valid for the duration of a callback;
// copy it if the callback needs to retain the data.
func (p *ParseState) Buffer() []byte { return p.buffer[:p.length] }

// ScratchPad returns the generic scratch area sized for user-supplied
// parsers registered with a non-zero ScratchPadBytes. The built-in
// protocols in this package do not use it.
func (p *ParseState) ScratchPad() []byte { return p.scratchPad }

// ActiveParserIndex returns the index into the registered parser table of
// the parser currently owning the stream, or len(parsers) while searching
// for a preamble.
func (p *ParseState) ActiveParserIndex() int { return p.active }

// ActiveParserName returns the name of the parser currently owning the
// stream, or a sentinel string while searching for a preamble.
func (p *ParseState) ActiveParserName() string {
	if p.active == len(p.parsers) {
		return "no active parser, scanning for preamble"
	}
	if p.active < 0 || p.active >= len(p.parsers) {
		return "unknown parser"
	}
	return p.parsers[p.active].Name
}

// StateName translates the active state function into a human-readable
// name via the active parser's StateName hook, matching sempGetStateName's
// function-pointer comparison with reflect since Go state functions are
// ordinary package-level funcs rather than methods with identity tied to a
// name table.
func (p *ParseState) StateName() string {
	if reflect.ValueOf(p.state).Pointer() == reflect.ValueOf(stateFunc(firstByte)).Pointer() {
		return "firstByte"
	}
	if p.active >= 0 && p.active < len(p.parsers) && p.parsers[p.active].StateName != nil {
		if name := p.parsers[p.active].StateName(p); name != "" {
			return name
		}
	}
	return "unknown state"
}

// DumpConfig prints the parser table's configuration, mirroring
// sempPrintParserConfiguration.
func (p *ParseState) DumpConfig(w io.Writer) {
	fmt.Fprintf(w, "semp parser %q\n", p.name)
	writeDecimalField(w, "parsers registered", int64(len(p.parsers)), 6)
	for i, pd := range p.parsers {
		fmt.Fprintf(w, "    [%d] %s\n", i, pd.Name)
	}
	writeDecimalField(w, "buffer bytes", int64(len(p.buffer)), 6)
	writeDecimalField(w, "scratch pad bytes", int64(len(p.scratchPad)), 6)
	writeDecimalField(w, "message bytes", int64(p.length), 6)
	writeHexField(w, "running crc/checksum", uint64(p.crc), 8)
	fmt.Fprintf(w, "  state: %s (%s)\n", p.StateName(), p.ActiveParserName())

	if p.length > 0 {
		fmt.Fprint(w, "  buffer: ")
		writeHexDump(w, p.buffer[:p.length])
		fmt.Fprintln(w)
	}

	if p.active >= 0 && p.active < len(p.parsers) {
		if printer := p.parsers[p.active].ScratchPrinter; printer != nil {
			printer(p, w)
		}
	}
}

// debugf writes a diagnostic line to the debug sink, if any.
func (p *ParseState) debugf(format string, args ...any) {
	if p.debugOutput == nil {
		return
	}
	fmt.Fprintf(p.debugOutput, format+"\n", args...)
}

// errorf writes a diagnostic line to the error sink, if any.
func (p *ParseState) errorf(format string, args ...any) {
	if p.errOutput == nil {
		return
	}
	fmt.Fprintf(p.errOutput, format+"\n", args...)
}

// rescueOrReject applies the fatal-to-frame-rescan / soft-CRC discipline
// shared by every protocol: when valid is false, the bad-CRC callback (if
// any) gets one chance to override it. badCRC returning true means "I
// looked at this and it's fine, accept anyway"; false or absent means
// discard.
func (p *ParseState) rescueOrReject(valid bool) bool {
	if valid {
		return true
	}
	if p.badCRC != nil && p.badCRC(p) {
		return true
	}
	return false
}

// reject implements the shared failure path every parser falls back to once
// it decides a frame cannot be completed: the invalid-data callback (if any)
// sees every byte accumulated so far, and the dispatcher either rescans
// data as a fresh preamble candidate immediately (rescan==true, matching
// call sites that tail-call firstByte inline) or simply arms firstByte for
// whatever byte arrives next (rescan==false, matching call sites that only
// set state and return).
func (p *ParseState) reject(data byte, rescan bool) bool {
	if p.invalidData != nil {
		p.invalidData(p, p.buffer[:p.length])
	}
	if rescan {
		return firstByte(p, data)
	}
	p.state = firstByte
	return false
}

// stateIs reports whether p's active state function is fn. Go state
// functions are ordinary package-level funcs, not methods keyed by name, so
// each protocol's StateName hook compares function pointers via reflect to
// translate the active state into a diagnostic string.
func stateIs(p *ParseState, fn stateFunc) bool {
	return reflect.ValueOf(p.state).Pointer() == reflect.ValueOf(fn).Pointer()
}

// asciiToNibble converts one hex digit to its 0..15 value, or -1 if data is
// not a hex digit. Mirrors sempAsciiToNibble.
func asciiToNibble(data byte) int {
	d := data | 0x20
	if d >= 'a' && d <= 'f' {
		return int(d-'a') + 10
	}
	if d >= '0' && d <= '9' {
		return int(d - '0')
	}
	return -1
}
