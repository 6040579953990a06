package main

import (
	"fmt"
	"text/tabwriter"

	"maxhal/mode"
	"maxhal/periph"

	"github.com/spf13/cobra"
)

var (
	resourcesOpts = struct {
		free bool
	}{}

	resourcesCmd = &cobra.Command{
		Use:   "resources",
		Short: "List claimed resources and their modes",
		Long:  "List the resources owned after applying --plan, with their current mode. --free lists the unclaimed ones instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, _, err := session()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resourcesOpts.free {
				for _, id := range p.Rest() {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			reg := p.Registry()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RESOURCE\tMODE")
			for _, id := range reg.Owned() {
				m, _ := reg.Mode(id)
				fmt.Fprintf(w, "%s\t%s\n", id, modeName(id, m))
			}
			return w.Flush()
		},
	}
)

func init() {
	resourcesCmd.Flags().BoolVar(&resourcesOpts.free, "free", false, "list unclaimed resources")
}

// modeName names m using the family graph of id's kind, falling back to
// the raw number for kinds without one.
func modeName(id periph.ID, m mode.State) string {
	family := ""
	switch id.Kind() {
	case periph.KindPin:
		family = "pin"
	case periph.KindTimer:
		family = "timer"
	}
	if g, ok := mode.Lookup(family); ok {
		return g.Name(m)
	}
	return fmt.Sprint(uint8(m))
}
