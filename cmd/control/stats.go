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

package control

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/config"
)

const (
	OutputOptionName = "output"
)

func NewStatsCommand(cfg *config.Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show receiver counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := command.NewApiClient(cfg).Stats()
			if err != nil {
				return err
			}
			if output != "" {
				return command.WriteValue(cmd.OutOrStdout(), output, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "received: %d, decoded: %d, rejected: %d, malformed: %d, persisted: %d\n",
				stats.Received, stats.Decoded, stats.Rejected, stats.Malformed, stats.Persisted)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, OutputOptionName, "", "Output format: json or yaml. Plain text if empty")
	return cmd
}
