package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	clocksOpts = struct {
		gates bool
	}{}

	clocksCmd = &cobra.Command{
		Use:   "clocks",
		Short: "Print the clock tree",
		Long:  "Print oscillators, domains and, with --gates, peripheral clock gates after applying --plan.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, _, err := session()
			if err != nil {
				return err
			}
			s := p.Tree().Snapshot()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "OSCILLATOR\tHZ\tSTATE")
			for _, o := range s.Oscillators {
				state := onOff(o.Enabled)
				if o.Unsupported {
					state = "unsupported"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", o.Name, o.Hz, state)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "DOMAIN\tSOURCE\tDIV\tHZ\tSTATE")
			for _, d := range s.Domains {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.Name, d.Source, d.Divider, d.Hz, onOff(d.Enabled))
			}
			if clocksOpts.gates {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "GATE\tDOMAIN\tSTATE")
				for _, g := range s.Gates {
					fmt.Fprintf(w, "%s\t%s\t%s\n", g.Name, g.Domain, onOff(!g.Gated))
				}
			}
			return w.Flush()
		},
	}
)

func init() {
	clocksCmd.Flags().BoolVarP(&clocksOpts.gates, "gates", "g", false, "include peripheral clock gates")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
