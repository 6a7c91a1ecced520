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

// Command asm is the assembler's CLI: `-v` verbose, positional input,
// `-o` output (§6). Grounded in oisee-z80-optimizer's cmd/z80opt/main.go
// cobra.Command-per-binary convention.
package main

import (
	"encoding/binary"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdxjjb/idli16/internal/asm"
	"github.com/pdxjjb/idli16/internal/clilog"
)

func main() {
	var output string
	var verbose bool

	root := &cobra.Command{
		Use:   "asm <source.s>",
		Short: "Assemble idli16 source into a packed binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clilog.Verbose = verbose
			words, err := asm.Assemble(args[0], verbose)
			if err != nil {
				clilog.Fatalf("%s", err)
			}
			if len(words) >= 1<<15 {
				clilog.Fatalf("%s: binary size %d words exceeds the 64 KiB limit", args[0], len(words))
			}
			out := output
			if out == "" {
				out = args[0] + ".bin"
			}
			return writeBinary(out, words)
		},
	}
	root.Flags().StringVarP(&output, "output", "o", "", "output binary path (default: <input>.bin)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace assembly progress")

	if err := root.Execute(); err != nil {
		clilog.Fatalf("%s", err)
	}
}

func writeBinary(path string, words []uint16) error {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[i*2:], w)
	}
	return os.WriteFile(path, buf, 0644)
}
