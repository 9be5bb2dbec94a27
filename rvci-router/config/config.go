package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DialType selects which audio target a channel controls.
type DialType string

const (
	DialSystem    DialType = "system"
	DialProcess   DialType = "process"
	DialAllOthers DialType = "all_others"
)

// Dial maps one wire-protocol field position to an audio target.
// ProcessName is only meaningful for DialProcess.
type Dial struct {
	Type        DialType `json:"type"`
	ProcessName string   `json:"process_name"`
}

type SerialConfig struct {
	Port    string `json:"port"`
	Baud    int    `json:"baud"`
	Timeout int    `json:"timeout"` // read timeout, milliseconds
}

// AppConfig is an immutable snapshot of the shared configuration file.
// The router never mutates it; the external editor is the only writer.
type AppConfig struct {
	Serial              SerialConfig `json:"serial"`
	ValueMax            float64      `json:"value_max"`
	SoundVolumeViewPath string       `json:"soundvolumeview_path"`
	WorkDevice1         string       `json:"work_device_1"`
	WorkDevice2         string       `json:"work_device_2"`
	Dials               []Dial       `json:"dials"`
}

const (
	DefaultSerialPort = "COM3"
	DefaultBaudRate   = 9600
	DefaultTimeoutMS  = 50
	DefaultValueMax   = 1024.0
)

func Default() AppConfig {
	return AppConfig{
		Serial:      SerialConfig{Port: DefaultSerialPort, Baud: DefaultBaudRate, Timeout: DefaultTimeoutMS},
		ValueMax:    DefaultValueMax,
		WorkDevice1: "None",
		WorkDevice2: "None",
		Dials:       []Dial{},
	}
}

// DefaultPath returns <user config dir>/RVCI/mapping.json, creating the
// directory if needed.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	dir := filepath.Join(base, "RVCI")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "mapping.json"), nil
}

// Load reads and validates the configuration file. A missing file and
// malformed content are both returned as errors; the caller treats every
// failure as transient and retries.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ValueMax <= 0 {
		return nil, fmt.Errorf("parse %s: value_max must be > 0, got %v", path, cfg.ValueMax)
	}
	if cfg.Serial.Port == "" {
		return nil, fmt.Errorf("parse %s: serial.port is empty", path)
	}
	if cfg.Serial.Baud <= 0 {
		return nil, fmt.Errorf("parse %s: serial.baud must be > 0, got %d", path, cfg.Serial.Baud)
	}
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) so a
// concurrently polling router never observes a truncated file.
func Save(path string, cfg *AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Signature identifies the physical link. Channel runtime state survives
// reloads whose signature is unchanged.
func (c *AppConfig) Signature() string {
	return c.Serial.Port + strconv.Itoa(c.Serial.Baud)
}

// ClaimedNames is the set of lower-cased process names explicitly targeted
// by process-type dials. All-others dials skip these.
func (c *AppConfig) ClaimedNames() map[string]struct{} {
	claims := make(map[string]struct{})
	for _, d := range c.Dials {
		if d.Type == DialProcess && d.ProcessName != "" {
			claims[strings.ToLower(d.ProcessName)] = struct{}{}
		}
	}
	return claims
}
