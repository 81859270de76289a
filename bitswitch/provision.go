package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/itohio/bitswitch/pkg/config"
	"github.com/itohio/bitswitch/pkg/device"
)

var errCancelled = errors.New("cancelled by user")

func newProvisionCommand() *cobra.Command {
	var (
		path     string
		port     string
		mock     bool
		mockMode string
	)
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Write the device settings to a board in config mode",
		Long: `provision validates the settings against the board profile, opens the
board's serial console, makes sure it is in config mode (blue fast blink LED)
and replaces /elements.json with the configured settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := config.Default().Save(path); err != nil {
					return err
				}
				return fmt.Errorf("config not found, created %s with default values: edit it and run again", path)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Serial.Port = port
			}

			// Never touch the board with a bad profile or bad settings.
			if err := checkSettings(out, cfg); err != nil {
				return err
			}

			var dev device.Device
			if mock {
				dev = device.NewMock(device.MockConfig{
					ConfigMode:    mockMode == "config",
					Silent:        mockMode == "silent",
					ResetToConfig: true,
				})
			} else {
				dev = device.New(cfg.Serial.Port, cfg.Serial.BaudRate, 0)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return provision(ctx, out, dev, cfg, newReadlinePrompt)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yaml", "Configuration file path")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	cmd.Flags().BoolVar(&mock, "mock", false, "Use a simulated board instead of a serial port")
	cmd.Flags().StringVar(&mockMode, "mock-mode", "config", "Initial state of the simulated board: config, running or silent")
	return cmd
}

// prompt asks the user for one line of input.
type prompt interface {
	Ask(question string) (string, error)
	Close() error
}

type readlinePrompt struct {
	rl *readline.Instance
}

func newReadlinePrompt() (prompt, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "q",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &readlinePrompt{rl: rl}, nil
}

func (p *readlinePrompt) Ask(question string) (string, error) {
	p.rl.SetPrompt(question)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "q", nil
	}
	return line, err
}

func (p *readlinePrompt) Close() error {
	return p.rl.Close()
}

// provision connects to dev, brings it into config mode and writes the settings.
func provision(ctx context.Context, out io.Writer, dev device.Device, cfg *config.Config, newPrompt func() (prompt, error)) error {
	logger := log.New(out, "", log.Ltime)

	logger.Printf("Connecting to %s...", cfg.Serial.Port)
	if err := dev.Connect(); err != nil {
		return err
	}
	defer dev.Close()

	prov := device.NewProvisioner(dev, cfg.Provision, logger)
	if err := prov.Settle(ctx); err != nil {
		return err
	}

	logger.Printf("Checking if device is in config mode...")
	report, err := prov.DetectMode(ctx)
	if err != nil {
		return err
	}
	if report.Mode != device.ModeConfig {
		logger.Printf("%s", report.Message)
		p, err := newPrompt()
		if err != nil {
			return err
		}
		defer p.Close()
		if err := enterConfigMode(ctx, out, prov, cfg.Provision, p); err != nil {
			return err
		}
	} else {
		logger.Printf("%s", report.Message)
	}

	result, err := prov.Write(ctx, cfg.Settings.Elements())
	if err != nil {
		return err
	}
	if result.VerifyErr != nil {
		logger.Printf("Warning: %v", result.VerifyErr)
	} else {
		logger.Printf("Validation: config has %d valid parameters", result.Verified)
	}
	for _, line := range result.Responses {
		logger.Printf("  %s", line)
	}
	logger.Printf("Configuration complete! Device will exit config mode.")
	return nil
}

// enterConfigMode runs the interactive recovery loop until the board reports
// config mode or the user gives up.
func enterConfigMode(ctx context.Context, out io.Writer, prov *device.Provisioner, timing config.ProvisionConfig, p prompt) error {
	fmt.Fprint(out, `
Device is not in config mode!

To enter config mode:
   - Device auto-enters if no valid config exists
   - OR power cycle and look for BLUE FAST BLINK LED
   - OR send reset command (option 't' below)

Options:
   [r] Retry detection (if config mode is now active)
   [t] Trigger reset to enter config mode
   [w] Wait and retry
   [q] Quit
`)

	for {
		choice, err := p.Ask("Your choice [r/t/w/q]: ")
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "r":
		case "t":
			method, err := prov.Reset(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				fmt.Fprintf(out, "Reset failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Reset (%s) complete, waiting for config mode...\n", method)
		case "w":
			fmt.Fprintf(out, "Waiting %s...\n", timing.RetryWait)
			if err := sleepContext(ctx, timing.RetryWait); err != nil {
				return err
			}
		case "q":
			return errCancelled
		default:
			fmt.Fprintln(out, "Invalid choice")
			continue
		}

		report, err := prov.DetectMode(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.Message)
		if report.Mode == device.ModeConfig {
			return nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
