package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Default persistence paths, carried over from the first controller builds.
const (
	DefaultSchedulePath = "./schedule.yaml"
	DefaultLogbookPath  = "./logbook.yaml"
)

type ControllerConfig struct {
	Name         string        `toml:"name"`
	SchedulePath string        `toml:"schedule_path"`
	LogbookPath  string        `toml:"logbook_path"`
	TickSeconds  int           `toml:"tick_seconds"`
	Valves       []ValveConfig `toml:"valves"`
}

type ValveConfig struct {
	Name string `toml:"name"`
	Pin  uint64 `toml:"pin"`
}

// LoadControllerConfig reads, defaults, and validates the controller config
// at path.
func LoadControllerConfig(path string) (ControllerConfig, error) {
	var cfg ControllerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ControllerConfig{}, err
	}
	cfg = withDefaults(cfg)
	if err := ValidateControllerConfig(cfg); err != nil {
		return ControllerConfig{}, err
	}
	return cfg, nil
}

// DefaultControllerConfig returns the configuration used when no config
// file exists: default paths, no valves.
func DefaultControllerConfig() ControllerConfig {
	return withDefaults(ControllerConfig{})
}

func withDefaults(cfg ControllerConfig) ControllerConfig {
	if cfg.Name == "" {
		cfg.Name = "irrigctl"
	}
	if cfg.SchedulePath == "" {
		cfg.SchedulePath = DefaultSchedulePath
	}
	if cfg.LogbookPath == "" {
		cfg.LogbookPath = DefaultLogbookPath
	}
	if cfg.TickSeconds <= 0 {
		cfg.TickSeconds = 30
	}
	return cfg
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateControllerConfig(cfg ControllerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("controller config missing name")
	}
	if strings.TrimSpace(cfg.SchedulePath) == "" {
		return fmt.Errorf("controller config missing schedule_path")
	}
	if strings.TrimSpace(cfg.LogbookPath) == "" {
		return fmt.Errorf("controller config missing logbook_path")
	}
	seenNames := make(map[string]bool)
	seenPins := make(map[uint64]bool)
	for i, valveCfg := range cfg.Valves {
		if err := ValidateValveEntry(valveCfg); err != nil {
			return fmt.Errorf("valve[%d] invalid: %w", i, err)
		}
		if seenNames[valveCfg.Name] {
			return fmt.Errorf("valve[%d] invalid: duplicate name %q", i, valveCfg.Name)
		}
		if seenPins[valveCfg.Pin] {
			return fmt.Errorf("valve[%d] invalid: duplicate pin %d", i, valveCfg.Pin)
		}
		seenNames[valveCfg.Name] = true
		seenPins[valveCfg.Pin] = true
	}
	return nil
}

func ValidateValveEntry(cfg ValveConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
