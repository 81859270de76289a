package device

import (
	"strings"
	"sync"
)

// MockConfig describes how the simulated firmware behaves.
type MockConfig struct {
	ConfigMode    bool // Board starts in config mode
	Silent        bool // Board never answers
	IgnoreReset   bool // Board does not acknowledge /reset
	ResetToConfig bool // Board enters config mode after any reset
}

// Mock simulates the bitcoinSwitch firmware console for testing and development.
type Mock struct {
	cfg MockConfig

	lines     chan string
	mu        sync.Mutex
	connected bool
	closed    bool

	configMode bool
	file       []string
	commands   []string
	resets     int
	hwResets   int
	done       bool
}

// NewMock creates a new simulated device.
func NewMock(cfg MockConfig) *Mock {
	return &Mock{
		cfg:        cfg,
		lines:      make(chan string, DefaultBufferSize),
		configMode: cfg.ConfigMode,
	}
}

// Connect simulates opening the console.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.closed {
		m.lines = make(chan string, DefaultBufferSize)
		m.closed = false
	}
	m.connected = true
	return nil
}

// Close stops the simulated device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.connected = false
	m.closed = true
	close(m.lines)
	return nil
}

// Lines returns the channel of console lines.
func (m *Mock) Lines() <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// HardwareReset simulates a DTR/RTS reset.
func (m *Mock) HardwareReset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.hwResets++
	m.reboot()
	return nil
}

// Send feeds one command line to the simulated firmware.
func (m *Mock) Send(command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.commands = append(m.commands, command)
	if m.cfg.Silent {
		return nil
	}

	cmd, arg, _ := strings.Cut(command, " ")
	if !m.configMode {
		if cmd == "/reset" && !m.cfg.IgnoreReset {
			m.emit("Rebooting...")
			m.resets++
			m.reboot()
			return nil
		}
		m.emit("WiFi connected", "WebSocket connected to LNbits")
		return nil
	}

	switch cmd {
	case "/file-list":
		m.emit("Config mode active", "Available commands: /file-list /file-remove /file-append /file-read /config-done /reset")
	case "/file-remove":
		m.file = nil
		m.emit("/elements.json removed")
	case "/file-append":
		m.file = append(m.file, arg)
	case "/file-read":
		for _, part := range m.file {
			m.emit("/file-send " + part)
		}
	case "/config-done":
		m.done = true
		m.configMode = false
		m.emit("Configuration saved, leaving config mode")
	case "/reset":
		if m.cfg.IgnoreReset {
			return nil
		}
		m.emit("Rebooting...")
		m.resets++
		m.reboot()
	default:
		m.emit("Unknown command: " + cmd)
	}
	return nil
}

// File returns the stored /elements.json content.
func (m *Mock) File() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.file, "")
}

// Commands returns every command line received so far.
func (m *Mock) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Resets returns how many software and hardware resets were performed.
func (m *Mock) Resets() (software, hardware int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets, m.hwResets
}

// Done reports whether /config-done was received in config mode.
func (m *Mock) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// ConfigMode reports whether the simulated firmware is in config mode.
func (m *Mock) ConfigMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configMode
}

func (m *Mock) reboot() {
	if m.cfg.ResetToConfig {
		m.configMode = true
	}
}

// emit queues lines without blocking, dropping them when the buffer is full.
func (m *Mock) emit(lines ...string) {
	for _, l := range lines {
		select {
		case m.lines <- l:
		default:
		}
	}
}
