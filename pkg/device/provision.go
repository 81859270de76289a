package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/itohio/bitswitch/pkg/config"
)

const (
	// SettingsFile is where the firmware keeps its settings.
	SettingsFile = "/elements.json"

	fileSendPrefix = "/file-send"
)

var (
	ErrClosed     = errors.New("device closed")
	ErrNoResponse = errors.New("no response from device")
)

// Mode is the state a board reports on its console.
type Mode int

const (
	ModeSilent Mode = iota
	ModeConfig
	ModeRunning
	ModeUnknown
)

func (m Mode) String() string {
	switch m {
	case ModeSilent:
		return "silent"
	case ModeConfig:
		return "config"
	case ModeRunning:
		return "running"
	}
	return "unknown"
}

// ModeReport is the outcome of DetectMode.
type ModeReport struct {
	Mode    Mode
	Message string
	Lines   []string
}

// ResetMethod tells which reset brought the board back.
type ResetMethod int

const (
	ResetNone ResetMethod = iota
	ResetSoftware
	ResetHardware
)

func (r ResetMethod) String() string {
	switch r {
	case ResetSoftware:
		return "software"
	case ResetHardware:
		return "hardware"
	}
	return "none"
}

// Report summarises a settings write.
type Report struct {
	Written   int      // Elements sent
	Verified  int      // Elements parsed back from the device
	VerifyErr error    // Set when the read back did not match
	Responses []string // Console lines seen while verifying and finishing
}

// Provisioner drives the config-mode console protocol of a board.
type Provisioner struct {
	dev    Device
	cfg    config.ProvisionConfig
	logger *log.Logger
}

// NewProvisioner creates a provisioner for a connected device. A nil logger
// logs to the standard logger.
func NewProvisioner(dev Device, cfg config.ProvisionConfig, logger *log.Logger) *Provisioner {
	if logger == nil {
		logger = log.Default()
	}
	return &Provisioner{dev: dev, cfg: cfg, logger: logger}
}

// Settle waits for the port to settle after opening and discards boot noise.
func (p *Provisioner) Settle(ctx context.Context) error {
	if err := sleep(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}
	p.drain()
	return nil
}

// DetectMode asks the board for its file list and classifies the answer.
// The command is harmless in every mode.
func (p *Provisioner) DetectMode(ctx context.Context) (ModeReport, error) {
	p.drain()
	if err := p.dev.Send("/file-list"); err != nil {
		return ModeReport{}, err
	}
	lines, err := p.collect(ctx, p.cfg.DetectWindow)
	if err != nil {
		return ModeReport{}, err
	}
	return classify(lines), nil
}

func classify(lines []string) ModeReport {
	r := ModeReport{Lines: lines}
	if len(lines) == 0 {
		r.Mode, r.Message = ModeSilent, "No response from device"
		return r
	}

	text := strings.ToLower(strings.Join(lines, " "))
	for _, marker := range []string{"config mode", "available commands", "file-list"} {
		if strings.Contains(text, marker) {
			r.Mode, r.Message = ModeConfig, "Device is in config mode"
			return r
		}
	}
	for _, marker := range []string{"wifi", "ethernet", "websocket", "connected", "network"} {
		if strings.Contains(text, marker) {
			r.Mode, r.Message = ModeRunning, "Device is running normally (not in config mode)"
			return r
		}
	}
	r.Mode, r.Message = ModeUnknown, "Could not determine device state"
	return r
}

// Reset restarts the board, trying the /reset command first and falling back
// to a DTR/RTS pulse. It waits for the board to boot before returning.
func (p *Provisioner) Reset(ctx context.Context) (ResetMethod, error) {
	p.drain()
	p.logger.Printf("Sending software reset command...")
	if err := p.dev.Send("/reset"); err != nil {
		return ResetNone, err
	}
	lines, err := p.collect(ctx, p.cfg.ResetWindow)
	if err != nil {
		return ResetNone, err
	}
	if strings.Contains(strings.ToLower(strings.Join(lines, " ")), "reboot") {
		p.logger.Printf("Software reset acknowledged")
		return ResetSoftware, p.boot(ctx)
	}

	p.logger.Printf("No response to software reset, trying hardware reset via DTR/RTS")
	if err := p.dev.HardwareReset(); err != nil {
		return ResetNone, err
	}
	return ResetHardware, p.boot(ctx)
}

func (p *Provisioner) boot(ctx context.Context) error {
	if err := sleep(ctx, p.cfg.BootWait); err != nil {
		return err
	}
	p.drain()
	return nil
}

// Write replaces the settings file with elements, reads it back and finishes
// config mode. The board must already be in config mode.
func (p *Provisioner) Write(ctx context.Context, elements []config.Element) (*Report, error) {
	p.logger.Printf("Removing old config...")
	if err := p.dev.Send("/file-remove"); err != nil {
		return nil, err
	}
	if _, err := p.collect(ctx, p.cfg.CommandDelay); err != nil {
		return nil, err
	}

	p.logger.Printf("Writing configuration (%d parameters)...", len(elements))
	if err := p.appendLine(ctx, "["); err != nil {
		return nil, err
	}
	for i, e := range elements {
		item, err := encodeElement(e)
		if err != nil {
			return nil, err
		}
		if i < len(elements)-1 {
			item += ","
		}
		if err := p.appendLine(ctx, item); err != nil {
			return nil, err
		}
		if (i+1)%3 == 0 || i == len(elements)-1 {
			p.logger.Printf("Written %d/%d parameters...", i+1, len(elements))
		}
	}
	if err := p.appendLine(ctx, "]"); err != nil {
		return nil, err
	}

	report := &Report{Written: len(elements)}

	p.logger.Printf("Verifying configuration...")
	if err := p.dev.Send("/file-read " + SettingsFile); err != nil {
		return nil, err
	}
	lines, err := p.collect(ctx, p.cfg.VerifyWindow)
	if err != nil {
		return nil, err
	}
	report.Responses = append(report.Responses, lines...)
	report.Verified, report.VerifyErr = verify(lines, len(elements))

	p.logger.Printf("Finalizing configuration...")
	if err := p.dev.Send("/config-done"); err != nil {
		return report, err
	}
	lines, err = p.collect(ctx, p.cfg.CommandDelay)
	report.Responses = append(report.Responses, lines...)
	return report, err
}

func (p *Provisioner) appendLine(ctx context.Context, content string) error {
	if err := p.dev.Send("/file-append " + content); err != nil {
		return err
	}
	return sleep(ctx, p.cfg.CommandDelay)
}

// encodeElement renders one element as compact JSON on a single line.
func encodeElement(e config.Element) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", e.Name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// verify reassembles the /file-send lines and counts the parsed elements.
func verify(lines []string, want int) (int, error) {
	if len(lines) == 0 {
		return 0, ErrNoResponse
	}
	var content strings.Builder
	for _, line := range lines {
		if _, rest, ok := strings.Cut(line, fileSendPrefix); ok {
			content.WriteString(strings.TrimSpace(rest))
		}
	}
	if content.Len() == 0 {
		return 0, fmt.Errorf("%w: %s not returned", ErrNoResponse, SettingsFile)
	}

	var parsed []config.Element
	if err := json.Unmarshal([]byte(content.String()), &parsed); err != nil {
		return 0, fmt.Errorf("JSON validation failed: %w", err)
	}
	if len(parsed) != want {
		return len(parsed), fmt.Errorf("device holds %d parameters, wrote %d", len(parsed), want)
	}
	return len(parsed), nil
}

// collect gathers console lines for the given window.
func (p *Provisioner) collect(ctx context.Context, window time.Duration) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timer := time.NewTimer(window)
	defer timer.Stop()

	var lines []string
	for {
		select {
		case <-ctx.Done():
			return lines, ctx.Err()
		case <-timer.C:
			return lines, nil
		case line, ok := <-p.dev.Lines():
			if !ok {
				return lines, ErrClosed
			}
			lines = append(lines, line)
		}
	}
}

// drain discards pending console lines.
func (p *Provisioner) drain() {
	for {
		select {
		case _, ok := <-p.dev.Lines():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
