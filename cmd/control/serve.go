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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/config"
)

const (
	AddressOptionName    = "address"
	PortOptionName       = "port"
	ApiAddressOptionName = "api-address"
	ApiPortOptionName    = "api-port"
	DirOptionName        = "dir"
	KeepOptionName       = "keep"
	FilePrefixOptionName = "file-prefix"
)

func NewServeCommand(cfg *config.Config) *cobra.Command {
	var address, apiAddress, dir string
	var port, apiPort, keep int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive GEMROC frames and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.GemrocConfig.Address = address
			}
			if cmd.Flags().Changed(PortOptionName) {
				cfg.GemrocConfig.Port = port
			}
			if apiAddress != "" {
				cfg.ApiConfig.Address = apiAddress
			}
			if cmd.Flags().Changed(ApiPortOptionName) {
				cfg.ApiConfig.Port = apiPort
			}
			if dir != "" {
				cfg.GemrocConfig.Dir = dir
			}
			if cmd.Flags().Changed(KeepOptionName) {
				cfg.GemrocConfig.KeepPackets = keep
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartGemrocServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultGemrocAddress))
	cmd.Flags().IntVar(&port, PortOptionName, config.DefaultGemrocPort, "UDP port to receive frames on")
	cmd.Flags().StringVar(&apiAddress, ApiAddressOptionName, "", fmt.Sprintf("API address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, config.DefaultApiPort, "API port")
	cmd.Flags().StringVar(&dir, DirOptionName, "", "Directory path where to persist data")
	cmd.Flags().IntVar(&keep, KeepOptionName, config.DefaultKeepPackets, "Number of decoded packets kept in the database. 0 keeps all")

	return cmd
}
