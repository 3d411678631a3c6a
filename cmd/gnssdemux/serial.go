package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"gnssdemux/internal/config"
	"gnssdemux/semp"
)

var (
	serialPort string
	serialBaud int
)

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Read a live GNSS byte stream from a serial device",
	RunE:  runSerial,
}

func init() {
	serialCmd.Flags().StringVarP(&serialPort, "port", "p", "", "serial device path, e.g. /dev/ttyACM0")
	serialCmd.Flags().IntVarP(&serialBaud, "baud", "b", 0, "baud rate; defaults to config or 115200")
}

func runSerial(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serialPort != "" {
		cfg.Source.Serial.Port = serialPort
	}
	if serialBaud > 0 {
		cfg.Source.Serial.Baud = serialBaud
	}
	if cfg.Source.Serial.Baud <= 0 {
		cfg.Source.Serial.Baud = 115200
	}
	if cfg.Source.Serial.Port == "" {
		return fmt.Errorf("a serial port is required, via --port or source.serial.port")
	}

	log := newLogger(cfg.Log)

	port, err := serial.Open(cfg.Source.Serial.Port, &serial.Mode{BaudRate: cfg.Source.Serial.Baud})
	if err != nil {
		return fmt.Errorf("open serial %s: %w", cfg.Source.Serial.Port, err)
	}
	defer port.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("reading %s at %d baud", cfg.Source.Serial.Port, cfg.Source.Serial.Baud)
	return readSerial(ctx, cfg, log, port)
}

func readSerial(ctx context.Context, cfg config.Config, log *logrus.Logger, port serial.Port) error {
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
		Name:         "gnssdemux-serial",
		Parsers:      parsers,
		BufferLength: cfg.Buffer.Length,
		ErrorOutput:  log.Writer(),
		EOM: func(p *semp.ParseState, typ int) {
			name := p.ActiveParserName()
			counts[name]++
			log.Debugf("%s frame, %d bytes", name, p.Length())
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

	if err := port.SetReadTimeout(250 * time.Millisecond); err != nil {
		return fmt.Errorf("set serial read timeout: %w", err)
	}

	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			log.Infof("stopping, frame counts: %v", counts)
			return nil
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return fmt.Errorf("read serial: %w", err)
		}
		if n > 0 {
			p.ParseNextBytes(buf[:n])
		}
	}
}
