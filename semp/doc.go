// Package semp implements an extensible message parser for GNSS receiver
// output streams.
//
// A single interleaved octet stream can mix NMEA and Unicore "#" text
// sentences, RTCM10403, u-blox UBX, Septentrio SBF and SPARTN binary frames,
// and Unicore binary frames. Begin registers the set of protocols to
// recognise over one stream, and ParseNextByte/ParseNextBytes drive the
// dispatcher one octet at a time. Preamble predicates are tried in
// registration order and the first to accept a byte wins; that parser then
// owns the stream until it delivers a validated frame to the EOM callback or
// rejects the frame and hands control back to the preamble scan. A grammar
// violation (a bad name character, sync byte, length field or hex digit)
// re-offers the offending byte to the preamble scan; after a checksum or CRC
// failure, and after a SPARTN header CRC failure, the scan resumes with the
// next byte.
//
// The package does no I/O of its own: callers own the byte source, the
// message buffer, and the callbacks. See cmd/gnssdemux for a concrete
// collaborator that reads a live serial device or a file and wires the
// parser's callbacks to logging and a websocket tail.
package semp
