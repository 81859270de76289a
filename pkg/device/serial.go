package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the USB CDC console rate of the ESP32-S3 firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the lines channel buffer.
	DefaultBufferSize = 100

	// resetPulse is how long DTR/RTS are held during a hardware reset.
	resetPulse = 100 * time.Millisecond
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the board's USB serial console.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	lines     chan string
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		lines:    make(chan string, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		desc := name
		if strings.Contains(name, "usbmodem") || strings.Contains(name, "ttyACM") {
			desc = name + " (USB CDC)"
		}
		result = append(result, Port{
			Name:        name,
			Description: desc,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	// The previous reader closed its channel; each connection gets a fresh one.
	if d.ctx.Err() != nil {
		d.ctx, d.cancel = context.WithCancel(context.Background())
		d.lines = make(chan string, d.bufSize)
	}

	d.conn = port
	d.connected = true

	go d.readLines(d.ctx, d.lines, port)

	return nil
}

// Close closes the connection and stops reading lines.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Lines returns the channel of console lines, closed when reading stops.
func (d *Serial) Lines() <-chan string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lines
}

// Send writes one command line to the console.
func (d *Serial) Send(command string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := d.conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("failed to send %q: %w", firstField(command), err)
	}
	return nil
}

// HardwareReset pulses DTR/RTS the way the ESP32 auto-reset circuit expects.
func (d *Serial) HardwareReset() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	steps := []func() error{
		func() error { return d.conn.SetDTR(false) },
		func() error { return d.conn.SetRTS(true) },
		func() error { time.Sleep(resetPulse); return d.conn.SetRTS(false) },
		func() error { time.Sleep(resetPulse); return d.conn.SetDTR(true) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("hardware reset failed: %w", err)
		}
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readLines scans the console and forwards non-empty lines.
func (d *Serial) readLines(ctx context.Context, lines chan<- string, r io.Reader) {
	defer close(lines)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readLines: %v", r)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case lines <- line:
		case <-ctx.Done():
			return
		default:
			log.Printf("Lines channel full, dropping line")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}

func firstField(command string) string {
	cmd, _, _ := strings.Cut(command, " ")
	return cmd
}
