package main

import (
	"fmt"
	"strings"

	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/mode"
	"maxhal/timer"

	"github.com/spf13/cobra"
)

// The families the HAL registers at init.
var _ = []*mode.Graph{gpio.Graph, timer.Graph}

var (
	modesOpts = struct {
		route string
	}{}

	modesCmd = &cobra.Command{
		Use:   "modes [family]",
		Short: "List mode graphs and their legal transitions",
		Long:  "Without arguments, list the registered mode families. With a family, list its legal transitions; --route FROM,TO prints a shortest path.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, f := range mode.Families() {
					fmt.Fprintln(out, f)
				}
				return nil
			}
			g, ok := mode.Lookup(args[0])
			if !ok {
				return errcode.New(errcode.UnknownResource, "modes", args[0])
			}
			if modesOpts.route != "" {
				return printRoute(cmd, g, modesOpts.route)
			}
			for _, e := range g.Edges() {
				fmt.Fprintf(out, "%s -> %s\n", g.Name(e.From), g.Name(e.To))
			}
			return nil
		},
	}
)

func init() {
	modesCmd.Flags().StringVarP(&modesOpts.route, "route", "r", "", "FROM,TO state names")
}

func printRoute(cmd *cobra.Command, g *mode.Graph, spec string) error {
	from, to, ok := strings.Cut(spec, ",")
	if !ok {
		return errcode.New(errcode.InvalidDescriptor, "modes", "route wants FROM,TO")
	}
	f, ok := g.Parse(strings.TrimSpace(from))
	if !ok {
		return errcode.New(errcode.UnsupportedMode, "modes", from)
	}
	t, ok := g.Parse(strings.TrimSpace(to))
	if !ok {
		return errcode.New(errcode.UnsupportedMode, "modes", to)
	}
	steps, ok := g.Route(f, t)
	if !ok {
		return errcode.New(errcode.IllegalTransition, "modes", from+" -> "+to)
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = g.Name(s)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, " -> "))
	return nil
}
