package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/itohio/bitswitch/pkg/profile"
)

// Placeholder values written into a fresh template.
const (
	PlaceholderSSID         = "YourWiFiSSID"
	PlaceholderPassword     = "YourWiFiPassword"
	PlaceholderDeviceString = "wss://your.lnbits.com/bitcoinswitch/api/v1/ws/YOUR_DEVICE_ID"
)

// Settings is the configuration stored on the device as /elements.json.
type Settings struct {
	SSID         string `yaml:"config_ssid"`
	Password     string `yaml:"config_password"`
	DeviceString string `yaml:"config_device_string"` // LNbits websocket URL

	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
	DeviceName       string `yaml:"device_name"`

	// Ethernet static addressing, empty for DHCP.
	StaticIP      string `yaml:"static_ip"`
	StaticGateway string `yaml:"static_gateway"`
	StaticSubnet  string `yaml:"static_subnet"`

	// Legacy threshold mode, ignored by firmware 1.0 and later.
	ThresholdInkey  string `yaml:"config_threshold_inkey"`
	ThresholdAmount string `yaml:"config_threshold_amount"`
	ThresholdPin    string `yaml:"config_threshold_pin"`
	ThresholdTime   string `yaml:"config_threshold_time"`

	DIMonitorEnabled bool `yaml:"di_monitor_enabled"`
	DICheckTimeoutMs int  `yaml:"di_check_timeout_ms"`

	LoggingEnabled    bool   `yaml:"logging_enabled"`
	LogRetentionHours int    `yaml:"log_retention_hours"`
	SyslogServer      string `yaml:"syslog_server"`
	SyslogPort        int    `yaml:"syslog_port"`
}

// DefaultSettings returns the settings template with placeholder credentials.
func DefaultSettings() Settings {
	return Settings{
		SSID:              PlaceholderSSID,
		Password:          PlaceholderPassword,
		DeviceString:      PlaceholderDeviceString,
		DeviceName:        "Waveshare-01",
		StaticSubnet:      "255.255.255.0",
		DICheckTimeoutMs:  2000,
		LoggingEnabled:    true,
		LogRetentionHours: 168,
		SyslogPort:        514,
	}
}

// Element is one name/value pair of /elements.json.
type Element struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Elements returns the settings in the order the firmware template lists them.
func (s Settings) Elements() []Element {
	return []Element{
		{"config_ssid", s.SSID},
		{"config_password", s.Password},
		{"config_device_string", s.DeviceString},
		{"telegram_bot_token", s.TelegramBotToken},
		{"telegram_chat_id", s.TelegramChatID},
		{"device_name", s.DeviceName},
		{"static_ip", s.StaticIP},
		{"static_gateway", s.StaticGateway},
		{"static_subnet", s.StaticSubnet},
		{"config_threshold_inkey", s.ThresholdInkey},
		{"config_threshold_amount", s.ThresholdAmount},
		{"config_threshold_pin", s.ThresholdPin},
		{"config_threshold_time", s.ThresholdTime},
		{"di_monitor_enabled", strconv.FormatBool(s.DIMonitorEnabled)},
		{"di_check_timeout_ms", strconv.Itoa(s.DICheckTimeoutMs)},
		{"logging_enabled", strconv.FormatBool(s.LoggingEnabled)},
		{"log_retention_hours", strconv.Itoa(s.LogRetentionHours)},
		{"syslog_server", s.SyslogServer},
		{"syslog_port", strconv.Itoa(s.SyslogPort)},
	}
}

// Validation holds the problems found in the settings. Errors block provisioning,
// warnings are only reported.
type Validation struct {
	Errors   []string
	Warnings []string
}

// OK reports whether there are no errors.
func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

func (v *Validation) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the settings on their own and against the board profile p.
// p may be nil to skip the hardware checks.
func (s Settings) Validate(p *profile.DeviceProfile) Validation {
	var v Validation

	switch {
	case s.DeviceString == "":
		v.errorf("config_device_string is required")
	case !strings.HasPrefix(s.DeviceString, "wss://"):
		v.errorf("config_device_string must start with wss:// (secure WebSocket)")
	case s.DeviceString == PlaceholderDeviceString:
		v.errorf("config_device_string still has placeholder value - update with your actual LNbits URL")
	}

	if s.SSID == PlaceholderSSID {
		v.warnf("WiFi SSID has placeholder value - update or leave blank to use Ethernet only")
	}
	if s.SSID != "" && s.Password == "" {
		v.warnf("WiFi SSID set but password is empty - WiFi may not connect")
	}
	if s.Password != "" && s.SSID == "" {
		v.warnf("WiFi password set but SSID is empty")
	}

	if s.TelegramBotToken != "" && s.TelegramChatID == "" {
		v.errorf("telegram_chat_id required when telegram_bot_token is set")
	}
	if s.TelegramChatID != "" && s.TelegramBotToken == "" {
		v.errorf("telegram_bot_token required when telegram_chat_id is set")
	}

	for _, f := range []struct{ name, value string }{
		{"static_ip", s.StaticIP},
		{"static_gateway", s.StaticGateway},
	} {
		if f.value != "" && !isIPv4(f.value) {
			v.errorf("%s '%s' is not a valid IPv4 address", f.name, f.value)
		}
	}
	if s.StaticIP != "" && s.StaticSubnet != "" && !isIPv4(s.StaticSubnet) {
		v.errorf("static_subnet '%s' is not a valid IPv4 address", s.StaticSubnet)
	}

	if s.DICheckTimeoutMs < 0 {
		v.errorf("di_check_timeout_ms must not be negative")
	}
	if s.SyslogPort < 0 || s.SyslogPort > 65535 {
		v.errorf("syslog_port %d is not a valid port", s.SyslogPort)
	}

	if p != nil {
		s.validateHardware(p, &v)
	}

	return v
}

func (s Settings) validateHardware(p *profile.DeviceProfile, v *Validation) {
	if s.DIMonitorEnabled && !p.Features.Has(profile.FeatureDigitalInputs) {
		v.errorf("di_monitor_enabled is set but %s has no digital inputs", p.DeviceType)
	}
	if s.StaticIP != "" && p.Ethernet == nil {
		v.warnf("static_ip is set but %s has no Ethernet; it only applies to Ethernet", p.DeviceType)
	}

	hasWiFi := s.SSID != "" && s.SSID != PlaceholderSSID
	if p.Ethernet != nil {
		if hasWiFi && !p.Features.Has(profile.FeatureWiFiFallback) {
			v.warnf("WiFi credentials set but %s does not fall back to WiFi", p.DeviceType)
		}
		return
	}
	if !hasWiFi {
		v.errorf("%s has no Ethernet; config_ssid is required", p.DeviceType)
	}
}

func isIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
}
