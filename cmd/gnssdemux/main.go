// Command gnssdemux demultiplexes a mixed GNSS byte stream into NMEA,
// Unicore hash, RTCM, u-blox UBX, Septentrio SBF, Unicore binary and SPARTN
// frames.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
