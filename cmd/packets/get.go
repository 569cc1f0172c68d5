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

package packets

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/config"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <packet-no>",
		Short: "Show a stored packet",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return command.CheckOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			packetNo, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("wrong packet number %q: %w", args[0], err)
			}
			apiClient := command.NewApiClient(cfg)
			out := cmd.OutOrStdout()
			switch output {
			case command.OutputTree:
				tree, err := apiClient.GetPacketTree(packetNo)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, tree)
				return err
			case command.OutputSummary:
				record, err := apiClient.GetPacket(packetNo)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, record.Summary)
				return err
			}
			record, err := apiClient.GetPacket(packetNo)
			if err != nil {
				return err
			}
			return command.WriteValue(out, output, record)
		},
	}
	cmd.Flags().StringVar(&output, OutputOptionName, command.OutputTree, fmt.Sprintf("Output format. %s", command.HelpOutputs))
	return cmd
}
