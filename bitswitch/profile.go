package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itohio/bitswitch/pkg/profile"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and validate board profiles",
	}
	cmd.AddCommand(newProfileListCommand())
	cmd.AddCommand(newProfileShowCommand())
	cmd.AddCommand(newProfileValidateCommand())
	cmd.AddCommand(newProfileExportCommand())
	return cmd
}

func newProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the known board variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, v := range profile.Variants() {
				p, err := profile.Load(v)
				if err != nil {
					return err
				}
				mark := " "
				if v == profile.Selected {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-32s %s\n", mark, v, p.DeviceType)
			}
			return nil
		},
	}
}

func newProfileShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show [VARIANT]",
		Short: "Show a board profile (the build-selected one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, p, err := showTarget(args)
			if err != nil {
				return err
			}

			switch format {
			case "yaml":
				data, err := p.MarshalYAMLBytes()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "table":
				return printProfile(cmd.OutOrStdout(), v, p)
			}
			return fmt.Errorf("unknown output format %q (want table or yaml)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table or yaml")
	return cmd
}

// showTarget resolves the profile named on the command line, or the validated
// build-selected one.
func showTarget(args []string) (profile.Variant, *profile.DeviceProfile, error) {
	if len(args) == 0 {
		p, err := profile.Active()
		return profile.Selected, p, err
	}
	v, err := profile.ParseVariant(args[0])
	if err != nil {
		return "", nil, err
	}
	p, err := profile.Load(v)
	return v, p, err
}

func newProfileExportCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export [VARIANT]",
		Short: "Write a board profile to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, p, err := showTarget(args)
			if err != nil {
				return err
			}
			if err := p.WriteFile(file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", v, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "profile.yaml", "Output file")
	return cmd
}

func newProfileValidateCommand() *cobra.Command {
	var (
		file   string
		single string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the built-in profiles or a YAML profile table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if single != "" {
				p, err := profile.ReadFile(single)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): ok\n", single, p.DeviceType)
				return nil
			}

			table := profile.Builtin()
			if file != "" {
				t, err := profile.ReadTableFile(file)
				if err != nil {
					return err
				}
				table = t
			}
			if err := table.Validate(); err != nil {
				return err
			}
			for _, v := range table.Variants() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML profile table to validate")
	cmd.Flags().StringVarP(&single, "profile", "p", "", "Single YAML profile to validate")
	return cmd
}

func printProfile(out io.Writer, v profile.Variant, p *profile.DeviceProfile) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Variant:\t%s\n", v)
	fmt.Fprintf(w, "Device type:\t%s\n", p.DeviceType)
	if p.DeviceVersion != "" {
		fmt.Fprintf(w, "Version:\t%s\n", p.DeviceVersion)
	}
	if p.Chip != "" {
		fmt.Fprintf(w, "Chip:\t%s\n", p.Chip)
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(w, "Features:\t%s\n", p.Features)
	}
	if p.I2C != nil {
		fmt.Fprintf(w, "I2C:\tSDA=%d SCL=%d %dkHz\n", p.I2C.SDA, p.I2C.SCL, p.I2C.FrequencyHz/1000)
	}
	if r := p.Relays; r != nil {
		fmt.Fprintf(w, "Relays:\t%d on expander 0x%02X (active high: %t)\n", r.Count, r.Address, r.ActiveHigh)
	}
	if in := p.Inputs; in != nil {
		fmt.Fprintf(w, "Digital inputs:\t%d (active low: %t)\n", in.Count, in.ActiveLow)
	}
	if l := p.LED; l != nil {
		fmt.Fprintf(w, "Status LED:\tGPIO%d x%d brightness %d\n", l.Pin, l.Count, l.Brightness)
		for _, sc := range profile.StatusColors() {
			fmt.Fprintf(w, "  %s:\t%s -> %s\n", sc.State, sc.Color, l.Scale(sc.Color))
		}
	}
	if e := p.Ethernet; e != nil {
		fmt.Fprintf(w, "Ethernet:\t%s on %s, PHY address %d\n", e.PHY, e.SPIHost, e.PHYAddress)
	}

	if pins := p.PinMap(); len(pins) > 0 {
		fmt.Fprintf(w, "\nGPIO\tRole\n")
		for _, a := range pins {
			fmt.Fprintf(w, "%d\t%s\n", a.Pin, strings.Join(a.Roles, ", "))
		}
	}
	return w.Flush()
}
