package config

import (
	"fmt"
	"os"
	"time"

	"github.com/itohio/bitswitch/pkg/profile"
	"gopkg.in/yaml.v3"
)

// Config represents the provisioning tool configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Board     BoardConfig     `yaml:"board"`
	Provision ProvisionConfig `yaml:"provision"`
	Settings  Settings        `yaml:"settings"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// BoardConfig selects the hardware profile the settings are written for.
type BoardConfig struct {
	Variant     string `yaml:"variant"`
	ProfileFile string `yaml:"profile_file,omitempty"` // Optional YAML profile table overriding the built-in one
}

// ProvisionConfig contains the timing of the config-mode serial protocol.
type ProvisionConfig struct {
	SettleDelay  time.Duration `yaml:"settle_delay"`  // Wait after opening the port
	DetectWindow time.Duration `yaml:"detect_window"` // How long to collect the /file-list answer
	ResetWindow  time.Duration `yaml:"reset_window"`  // How long to wait for the /reset acknowledgement
	BootWait     time.Duration `yaml:"boot_wait"`     // Time the board needs to reboot
	CommandDelay time.Duration `yaml:"command_delay"` // Pause between /file-append lines
	VerifyWindow time.Duration `yaml:"verify_window"` // How long to collect the /file-read answer
	RetryWait    time.Duration `yaml:"retry_wait"`    // Wait used by the interactive "w" choice
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/cu.usbmodem101", // "COM3" on Windows, "/dev/ttyACM0" on Linux
			BaudRate: 115200,
		},
		Board: BoardConfig{
			Variant: string(profile.VariantWaveshareESP32S3ETH8DI8RO),
		},
		Provision: ProvisionConfig{
			SettleDelay:  1 * time.Second,
			DetectWindow: 3 * time.Second,
			ResetWindow:  300 * time.Millisecond,
			BootWait:     2500 * time.Millisecond,
			CommandDelay: 100 * time.Millisecond,
			VerifyWindow: 1 * time.Second,
			RetryWait:    10 * time.Second,
		},
		Settings: DefaultSettings(),
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Profile resolves and validates the board profile named by the configuration.
func (c *Config) Profile() (*profile.DeviceProfile, error) {
	table := profile.Builtin()
	if c.Board.ProfileFile != "" {
		t, err := profile.ReadTableFile(c.Board.ProfileFile)
		if err != nil {
			return nil, err
		}
		table = t
	}

	variant := profile.Variant(c.Board.Variant)
	if v, err := profile.ParseVariant(c.Board.Variant); err == nil {
		variant = v
	}

	p, err := table.Load(variant)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", variant, err)
	}
	return p, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Board.Variant == "" {
		c.Board.Variant = def.Board.Variant
	}

	p, d := &c.Provision, def.Provision
	if p.SettleDelay == 0 {
		p.SettleDelay = d.SettleDelay
	}
	if p.DetectWindow == 0 {
		p.DetectWindow = d.DetectWindow
	}
	if p.ResetWindow == 0 {
		p.ResetWindow = d.ResetWindow
	}
	if p.BootWait == 0 {
		p.BootWait = d.BootWait
	}
	if p.CommandDelay == 0 {
		p.CommandDelay = d.CommandDelay
	}
	if p.VerifyWindow == 0 {
		p.VerifyWindow = d.VerifyWindow
	}
	if p.RetryWait == 0 {
		p.RetryWait = d.RetryWait
	}

	if c.Settings.StaticSubnet == "" {
		c.Settings.StaticSubnet = def.Settings.StaticSubnet
	}
	if c.Settings.DICheckTimeoutMs == 0 {
		c.Settings.DICheckTimeoutMs = def.Settings.DICheckTimeoutMs
	}
	if c.Settings.LogRetentionHours == 0 {
		c.Settings.LogRetentionHours = def.Settings.LogRetentionHours
	}
	if c.Settings.SyslogPort == 0 {
		c.Settings.SyslogPort = def.Settings.SyslogPort
	}
}
