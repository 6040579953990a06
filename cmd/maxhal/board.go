package main

import (
	"fmt"
	"text/tabwriter"

	"maxhal/gpio"
	"maxhal/periph"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var (
	boardCmd = &cobra.Command{
		Use:   "board",
		Short: "Pin table and board plan tools",
	}

	boardCheckCmd = &cobra.Command{
		Use:   "check PLAN",
		Short: "Validate a board plan and bring it up on the simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootOpts.plan = args[0]
			_, _, b, err := session()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PIN\tMODE")
			for _, id := range sorted(b.Pins) {
				fmt.Fprintf(w, "%s\t%s\n", id, gpio.Graph.Name(b.Pins[id].Mode()))
			}
			for _, name := range sorted(b.UARTs) {
				u := b.UARTs[name]
				src, hz := u.Clock()
				fmt.Fprintf(w, "%s\t%d baud from %s %d Hz, div %d\n", name, u.Baud(), src, hz, u.Divisor())
			}
			for _, name := range sorted(b.I2C) {
				fmt.Fprintf(w, "%s\t%d Hz\n", name, b.I2C[name].Frequency())
			}
			return w.Flush()
		},
	}

	boardFindCmd = &cobra.Command{
		Use:   "find SIGNAL...",
		Short: "List the pins and alternate functions that carry a signal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sig := range args {
				choices := t.Find(sig)
				if len(choices) == 0 {
					fmt.Fprintf(w, "%s\t-\n", sig)
				}
				for _, c := range choices {
					fmt.Fprintf(w, "%s\t%s\tAF%d\n", sig, c.Pin, c.AF)
				}
			}
			return w.Flush()
		},
	}

	boardSignalsCmd = &cobra.Command{
		Use:   "signals",
		Short: "List every signal in the pin table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable()
			if err != nil {
				return err
			}
			for _, s := range t.Signals() {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
)

func init() {
	boardCmd.AddCommand(boardCheckCmd, boardFindCmd, boardSignalsCmd)
}

func sorted[K periph.ID | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
