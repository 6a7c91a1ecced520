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

// Command dis is the disassembler's CLI: positional binary input,
// listing to stdout (§6).
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdxjjb/idli16/internal/clilog"
	"github.com/pdxjjb/idli16/internal/dis"
)

func main() {
	root := &cobra.Command{
		Use:   "dis <binary>",
		Short: "Disassemble an idli16 binary to a listing on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readBinary(args[0])
			if err != nil {
				clilog.Fatalf("%s", err)
			}
			lines, err := dis.Listing(words, 0)
			if err != nil {
				clilog.Fatalf("%s: %s", args[0], err)
			}
			for _, line := range dis.Merge(lines) {
				fmt.Println(line)
			}
			return nil
		},
	}

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
