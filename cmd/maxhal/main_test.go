package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPlan = `
clocks:
  oscillators: [ipo]
  domains:
    - {name: sys_clk, source: ipo, div: 1}
pins:
  - {pin: P0.5, mode: Output}
uarts:
  - {id: UART0, rx: P0.0, tx: P0.1, baud: 115200}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootOpts.verbose, rootOpts.table, rootOpts.plan = false, "", ""
	modesOpts.route = ""
	clocksOpts.gates = false
	resourcesOpts.free = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writePlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(testPlan), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommands(t *testing.T) {
	plan := writePlan(t)
	cases := []struct {
		name string
		args []string
		want []string
	}{
		{"families", []string{"modes"}, []string{"pin", "timer"}},
		{"edges", []string{"modes", "timer"}, []string{"Unconfigured -> PWM"}},
		{"route", []string{"modes", "pin", "--route", "Disabled,Output"}, []string{"Disabled -> Unconfigured -> Output"}},
		{"default clocks", []string{"clocks"}, []string{"sys_clk", "60000000", "30000000"}},
		{"planned clocks", []string{"clocks", "--plan", plan, "--gates"}, []string{"100000000", "uart0"}},
		{"find", []string{"board", "find", "UART0_RX"}, []string{"P0.0", "AF1"}},
		{"check", []string{"board", "check", plan}, []string{"P0.5", "Output", "UART0", "div 434"}},
		{"owned", []string{"resources", "--plan", plan}, []string{"UART0", "P0.0", "Alternate"}},
		{"free", []string{"resources", "--free"}, []string{"TMR5", "I2C2"}},
	}
	for _, tc := range cases {
		out, err := run(t, tc.args...)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Fatalf("%s: output lacks %q:\n%s", tc.name, w, out)
			}
		}
	}
}

func TestCommandErrors(t *testing.T) {
	cases := [][]string{
		{"modes", "uart"},
		{"modes", "pin", "--route", "Output"},
		{"modes", "pin", "--route", "Output,Sideways"},
		{"board", "check", filepath.Join(t.TempDir(), "missing.yaml")},
		{"clocks", "--table", filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for _, args := range cases {
		if _, err := run(t, args...); err == nil {
			t.Fatalf("%v: expected an error", args)
		}
	}
}
