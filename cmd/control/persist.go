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

func NewPersistCommand(cfg *config.Config) *cobra.Command {
	var filePrefix string
	var dir string
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Start writing received frames to a pcap file",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			filename, err := apiClient.Persist(dir, filePrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Persisting to %s\n", filename)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, DirOptionName, "", "Directory path where to persist data")
	cmd.Flags().StringVar(&filePrefix, FilePrefixOptionName, "", "File name prefix")

	return cmd
}

func NewFlushCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Close the pcap file frames are persisted to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Flush()
		},
	}
	return cmd
}
