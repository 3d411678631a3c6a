package semp

import (
	"fmt"
	"io"
	"strings"
)

// writeHexDump prints data as space-separated two-digit hex bytes, the
// format DumpConfig uses for the buffer contents.
func writeHexDump(w io.Writer, data []byte) {
	if w == nil {
		return
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	fmt.Fprint(w, strings.Join(parts, " "))
}

// writeDecimalField prints a right-justified decimal field, the style used
// by DumpConfig and the Unicore header dump.
func writeDecimalField(w io.Writer, label string, value int64, width int) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%*d: %s\n", width, value, label)
}

// writeHexField prints a label and a hex-prefixed value on one line.
func writeHexField(w io.Writer, label string, value uint64, digits int) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "0x%0*x: %s\n", digits, value, label)
}
