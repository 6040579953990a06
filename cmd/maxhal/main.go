// Command maxhal inspects the HAL on the host: the clock tree, the mode
// graphs, the pin table and board plans, all against the simulated chip.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"maxhal/board"
	"maxhal/chip"
	"maxhal/hal"
	"maxhal/internal/logx"

	"github.com/spf13/cobra"
)

var (
	rootOpts = struct {
		verbose bool
		table   string
		plan    string
	}{}

	rootCmd = &cobra.Command{
		Use:           "maxhal",
		Short:         "Inspect the MAX7800x HAL",
		Long:          "Inspect clock trees, mode graphs, pin tables and board plans against a simulated MAX78000.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logx.SetLogger(logx.New(cmd.ErrOrStderr()))
			if rootOpts.verbose {
				logx.SetLevel(slog.LevelDebug)
			} else {
				logx.SetLevel(slog.LevelWarn)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log HAL activity at debug level")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.table, "table", "t", "", "pin function table (default: built-in MAX78000)")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.plan, "plan", "p", "", "board plan to apply before inspecting")
	rootCmd.AddCommand(clocksCmd, modesCmd, boardCmd, resourcesCmd)
}

func loadTable() (*board.Table, error) {
	if rootOpts.table == "" {
		return board.DefaultTable(), nil
	}
	return board.LoadTable(rootOpts.table)
}

// session takes a fresh simulated chip and applies --plan when given.
func session() (*chip.Sim, *hal.Peripherals, *hal.Board, error) {
	t, err := loadTable()
	if err != nil {
		return nil, nil, nil, err
	}
	sim := chip.NewSim()
	p, err := hal.Take(sim, hal.WithTable(t))
	if err != nil {
		return nil, nil, nil, err
	}
	if rootOpts.plan == "" {
		return sim, p, nil, nil
	}
	cfg, err := board.Load(rootOpts.plan)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := p.Apply(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return sim, p, b, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "maxhal:", err)
		os.Exit(1)
	}
}
