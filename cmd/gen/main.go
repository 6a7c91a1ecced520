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

// Command gen is the constrained random test generator's CLI: `-b` a
// YAML mnemonic bias, `-s` a seed, `-n` an instruction count, `-o` the
// assembly output path, matching scripts/tgen.py's parse_args flags
// and defaults (§6).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pdxjjb/idli16/internal/clilog"
	"github.com/pdxjjb/idli16/internal/gen"
)

func main() {
	var biasPath string
	var output string
	var seed int64
	var count int
	var verbose bool

	root := &cobra.Command{
		Use:   "gen",
		Short: "Generate a constrained random idli16 test program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clilog.Verbose = verbose

			bias := gen.Bias{}
			if biasPath != "" {
				raw, err := os.ReadFile(biasPath)
				if err != nil {
					clilog.Fatalf("%s", err)
				}
				if err := yaml.Unmarshal(raw, &bias); err != nil {
					clilog.Fatalf("%s: %s", biasPath, err)
				}
			} else {
				bias["add"] = 1.0
			}

			result, err := gen.Generate(bias, gen.Options{Seed: seed, Count: count, Verbose: verbose})
			if err != nil {
				clilog.Fatalf("%s", err)
			}

			out := output
			if out == "" {
				out = "test.s"
			}
			if err := os.WriteFile(out, []byte(result.Asm), 0644); err != nil {
				clilog.Fatalf("%s", err)
			}

			scriptPath := strings.TrimSuffix(out, ".s") + ".yaml"
			scriptBytes, err := yaml.Marshal(result.Script)
			if err != nil {
				clilog.Fatalf("%s", err)
			}
			if err := os.WriteFile(scriptPath, scriptBytes, 0644); err != nil {
				clilog.Fatalf("%s", err)
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "wrote %s and %s\n", out, scriptPath)
			}
			return nil
		},
	}
	root.Flags().StringVarP(&biasPath, "bias", "b", "", "YAML mnemonic -> weight bias (default: uniform 'add' only)")
	root.Flags().StringVarP(&output, "output", "o", "", "assembly output path (default: test.s)")
	root.Flags().Int64VarP(&seed, "seed", "s", 0xdeadbeef, "PRNG seed")
	root.Flags().IntVarP(&count, "num-instr", "n", 250, "number of instructions to generate")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace generation progress")

	if err := root.Execute(); err != nil {
		clilog.Fatalf("%s", err)
	}
}
