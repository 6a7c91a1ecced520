/*
Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Command sim is the behavioural simulator's CLI: positional binary
// input, an optional `-y` YAML test script driving UART/pin input and
// scoring UART output, a tick budget, and the `@@END@@` end-of-test
// protocol (§6, §7).
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pdxjjb/idli16/internal/clilog"
	"github.com/pdxjjb/idli16/internal/script"
	"github.com/pdxjjb/idli16/internal/sim"
)

func main() {
	var yamlPath string
	var tickBudget int
	var verbose bool

	root := &cobra.Command{
		Use:   "sim <binary>",
		Short: "Run an idli16 binary against the behavioural simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clilog.Verbose = verbose
			words, err := readBinary(args[0])
			if err != nil {
				clilog.Fatalf("%s", err)
			}

			var scr script.Script
			if yamlPath != "" {
				raw, err := os.ReadFile(yamlPath)
				if err != nil {
					clilog.Fatalf("%s", err)
				}
				if err := yaml.Unmarshal(raw, &scr); err != nil {
					clilog.Fatalf("%s: %s", yamlPath, err)
				}
			}

			cb, err := newHostCallback(words, scr)
			if err != nil {
				clilog.Fatalf("%s: %s", args[0], err)
			}

			s := sim.New(cb, verbose)
			for tick := 0; tick < tickBudget; tick++ {
				cb.applyPinEvents(tick)
				if err := s.Tick(); err != nil {
					clilog.Fatalf("tick %d (pc=0x%04x): %s", tick, s.PC(), err)
				}
				if cb.mismatch != nil {
					clilog.Fatalf("%s", cb.mismatch)
				}
				if finished, _ := cb.done(); finished {
					break
				}
			}

			finished, ok := cb.done()
			if !finished {
				clilog.Fatalf("tick budget of %d exhausted without @@END@@", tickBudget)
			}
			if !ok {
				clilog.Fatalf("UART scoreboard mismatch: expected %d output words, got %d", len(scr.Output), cb.outputIdx)
			}
			if cb.exitCode != 0 {
				fmt.Fprintf(os.Stderr, "exit code 0x%04x\n", cb.exitCode)
				os.Exit(1)
			}
			return nil
		},
	}
	root.Flags().StringVarP(&yamlPath, "yaml", "y", "", "YAML test script driving UART/pin input and scoring output")
	root.Flags().IntVarP(&tickBudget, "tick-budget", "t", 5000, "maximum number of ticks before giving up")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace simulation progress")

	if err := root.Execute(); err != nil {
		clilog.Fatalf("%s", err)
	}
}

func readBinary(path string) ([]uint16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%s: odd-length binary (%d bytes)", path, len(raw))
	}
	words := make([]uint16, len(raw)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return words, nil
}
