package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML shape cmd/gnssdemux loads: which protocol parsers to
// enable, how big the shared buffer is, where the byte stream comes from,
// and where diagnostics and the live frame feed go.
type Config struct {
	Parsers   []string        `yaml:"parsers"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Source    SourceConfig    `yaml:"source"`
	Log       LogConfig       `yaml:"log"`
	Websocket WebsocketConfig `yaml:"websocket"`
	SBF       SBFConfig       `yaml:"sbf"`
}

type BufferConfig struct {
	Length int `yaml:"length"`
}

type SourceConfig struct {
	File   string       `yaml:"file"`
	Serial SerialConfig `yaml:"serial"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type WebsocketConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
}

// SBFConfig controls behavior specific to the SBF parser.
type SBFConfig struct {
	// SpartnFallback re-feeds bytes SBF rejects (bad CRC, malformed length)
	// into a secondary SPARTN parser, for raw L-Band streams that interleave
	// SBF navigation blocks with SPARTN correction data SBF itself can't
	// frame. Only takes effect when both "sbf" and "spartn" are enabled.
	SpartnFallback bool `yaml:"spartn_fallback"`
}

// AllParsers is the full protocol set, used when cfg.Parsers is empty.
var AllParsers = []string{"nmea", "rtcm", "ublox", "sbf", "unicore_binary", "unicore_hash", "spartn"}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Parsers) == 0 {
		cfg.Parsers = AllParsers
	}
	for _, name := range cfg.Parsers {
		if !isKnownParser(name) {
			return Config{}, fmt.Errorf("unknown parser %q", name)
		}
	}

	if cfg.Buffer.Length <= 0 {
		cfg.Buffer.Length = 4096
	}

	if cfg.Source.File != "" && cfg.Source.Serial.Port != "" {
		return Config{}, fmt.Errorf("source.file and source.serial.port cannot both be set")
	}
	if cfg.Source.Serial.Port != "" && cfg.Source.Serial.Baud <= 0 {
		cfg.Source.Serial.Baud = 115200
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB <= 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups <= 0 {
			cfg.Log.MaxBackups = 3
		}
		if cfg.Log.MaxAgeDays <= 0 {
			cfg.Log.MaxAgeDays = 28
		}
	}

	if cfg.Websocket.Enable && cfg.Websocket.Addr == "" {
		cfg.Websocket.Addr = ":8910"
	}

	return cfg, nil
}

func isKnownParser(name string) bool {
	for _, known := range AllParsers {
		if name == known {
			return true
		}
	}
	return false
}
