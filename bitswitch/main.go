package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.Ltime)
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand returns the bitswitch command tree.
func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bitswitch",
		Short: "bitswitch: board profiles and provisioning for bitcoinSwitch devices",
		Long: `bitswitch inspects the hardware profiles of the supported bitcoinSwitch
boards and writes device settings (WiFi, LNbits websocket, Telegram, static IP,
logging) to a board in config mode over its USB serial console.`,
		SilenceUsage: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.AddCommand(newProfileCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newPortsCommand())
	cmd.AddCommand(newProvisionCommand())
	return cmd
}
