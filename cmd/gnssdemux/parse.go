package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gnssdemux/internal/config"
	"gnssdemux/semp"
)

var (
	parseFile       string
	parseDumpConfig bool
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a file (or stdin) and report the frames found",
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", "input file; defaults to source.file from the config, or stdin if neither is set")
	parseCmd.Flags().BoolVar(&parseDumpConfig, "dump-config", false, "print the parser configuration before running")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if parseFile != "" {
		cfg.Source.File = parseFile
	}

	log := newLogger(cfg.Log)
	return parseStream(cfg, log, cmd.OutOrStdout())
}

func parseStream(cfg config.Config, log *logrus.Logger, out io.Writer) error {
	parsers, err := buildParsers(cfg.Parsers)
	if err != nil {
		return err
	}

	var hub *frameHub
	if cfg.Websocket.Enable {
		hub = newFrameHub(log)
		startFrameHub(hub, cfg.Websocket.Addr, log)
	}

	counts := make(map[string]int)
	p, err := semp.Begin(semp.Config{
		Name:         "gnssdemux",
		Parsers:      parsers,
		BufferLength: cfg.Buffer.Length,
		ErrorOutput:  log.Writer(),
		EOM: func(p *semp.ParseState, typ int) {
			name := p.ActiveParserName()
			counts[name]++
			if hub != nil {
				hub.broadcast(name, p.Buffer())
			}
		},
	})
	if err != nil {
		return err
	}
	if cfg.Log.Debug {
		p.EnableDebugOutput(log.Writer())
	}

	if _, err := wireSpartnFallback(cfg, p, log, counts, hub); err != nil {
		return err
	}

	if parseDumpConfig {
		p.DumpConfig(out)
	}

	src, err := openSource(cfg.Source.File)
	if err != nil {
		return err
	}
	defer src.Close()

	buf := make([]byte, 4096)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			p.ParseNextBytes(buf[:n])
		}
		if readErr != nil {
			break
		}
	}

	fmt.Fprintln(out, "frames delivered:")
	for _, name := range cfg.Parsers {
		fmt.Fprintf(out, "  %-16s %d\n", name, counts[parserDisplayName(name)])
	}
	return nil
}

func openSource(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// parserDisplayName maps a config parser name to the ParserDescription.Name
// string ActiveParserName returns, since the two vocabularies differ
// (config uses snake_case identifiers, ParserDescription uses a display
// name).
func parserDisplayName(configName string) string {
	desc, err := parserByName(configName)
	if err != nil {
		return configName
	}
	return desc.Name
}
