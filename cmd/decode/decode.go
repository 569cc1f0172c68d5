/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package decode

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
)

const (
	OutputOptionName  = "output"
	HexOptionName     = "hex"
	AnyPortOptionName = "any-port"
	TreeOptionName    = "tree"
)

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// decodeHex accepts hex text with arbitrary whitespace, as printed by xxd -p
func decodeHex(data []byte) ([]byte, error) {
	return hex.DecodeString(string(bytes.Join(bytes.Fields(data), nil)))
}

func NewDecodeCommand() *cobra.Command {
	var output string
	var isHex bool
	cmd := &cobra.Command{
		Use:   "decode <file|->",
		Short: "Decode a single raw GEMROC frame",
		Long:  fmt.Sprintf("Decode a file holding exactly one %d byte GEMROC frame. Use - to read standard input.", layers.PacketSize),
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return command.CheckOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if isHex {
				data, err = decodeHex(data)
				if err != nil {
					return err
				}
			}
			packet, err := layers.Decode(data)
			if err != nil {
				return err
			}
			return command.WritePacket(cmd.OutOrStdout(), output, packet)
		},
	}
	cmd.Flags().StringVar(&output, OutputOptionName, command.OutputTree, fmt.Sprintf("Output format. %s", command.HelpOutputs))
	cmd.Flags().BoolVar(&isHex, HexOptionName, false, "Input is hex encoded")
	return cmd
}
