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
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/config"
)

func NewListCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored packets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			records, err := apiClient.ListPackets(limit)
			if err != nil {
				return err
			}
			for _, record := range records {
				ts := time.UnixMilli(int64(record.Timestamp)).Format(time.RFC3339Nano)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ts, record.Source, record.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, LimitOptionName, 20, "Maximum number of packets to list")
	return cmd
}
