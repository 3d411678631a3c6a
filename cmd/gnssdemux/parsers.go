package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gnssdemux/internal/config"
	"gnssdemux/semp"
)

// buildParsers translates the configured parser name list into the
// semp.ParserDescription table Begin expects, in the priority order the
// names were given.
func buildParsers(names []string) ([]semp.ParserDescription, error) {
	descs := make([]semp.ParserDescription, 0, len(names))
	for _, name := range names {
		desc, err := parserByName(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func parserByName(name string) (semp.ParserDescription, error) {
	switch name {
	case "nmea":
		return semp.NMEAParser(), nil
	case "rtcm":
		return semp.RTCMParser(), nil
	case "ublox":
		return semp.UBXParser(), nil
	case "sbf":
		return semp.SBFParser(), nil
	case "unicore_binary":
		return semp.UnicoreBinaryParser(), nil
	case "unicore_hash":
		return semp.UnicoreHashParser(), nil
	case "spartn":
		return semp.SPARTNParser(), nil
	default:
		return semp.ParserDescription{}, fmt.Errorf("unknown parser %q", name)
	}
}

func containsParser(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

// wireSpartnFallback gives SBF's secondary invalid-data sink somewhere to
// go: a raw L-Band stream interleaves SPARTN correction data with SBF
// navigation blocks, and SBF's own framer rejects every SPARTN byte it
// sees as a bad frame. When configured, this builds a second ParseState
// running only the SPARTN parser and re-feeds it whatever SBF rejects, so
// those bytes get a second chance to frame instead of being dropped.
// Returns nil, nil if the fallback isn't configured or SBF and SPARTN
// aren't both enabled.
func wireSpartnFallback(cfg config.Config, primary *semp.ParseState, log *logrus.Logger, counts map[string]int, hub *frameHub) (*semp.ParseState, error) {
	if !cfg.SBF.SpartnFallback {
		return nil, nil
	}
	if !containsParser(cfg.Parsers, "sbf") || !containsParser(cfg.Parsers, "spartn") {
		return nil, nil
	}

	fallback, err := semp.Begin(semp.Config{
		Name:         "gnssdemux-spartn-fallback",
		Parsers:      []semp.ParserDescription{semp.SPARTNParser()},
		BufferLength: cfg.Buffer.Length,
		ErrorOutput:  log.Writer(),
		EOM: func(p *semp.ParseState, typ int) {
			name := p.ActiveParserName()
			counts[name]++
			log.Debugf("%s frame recovered via SBF fallback, %d bytes", name, p.Length())
			if hub != nil {
				hub.broadcast(name, p.Buffer())
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("begin spartn fallback parser: %w", err)
	}

	primary.SetSBFInvalidDataCallback(func(p *semp.ParseState, data []byte) {
		fallback.ParseNextBytes(data)
	})
	return fallback, nil
}
