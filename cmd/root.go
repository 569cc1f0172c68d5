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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/cmd/completion"
	"jinr.ru/greenlab/go-gemroc/cmd/config"
	"jinr.ru/greenlab/go-gemroc/cmd/control"
	"jinr.ru/greenlab/go-gemroc/cmd/decode"
	"jinr.ru/greenlab/go-gemroc/cmd/packets"
	"jinr.ru/greenlab/go-gemroc/cmd/send"
	pkgconfig "jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:          "go-gemroc",
		Short:        "Tool to decode and receive GEMROC UDP data frames",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(control.NewServeCommand(cfg))
	cmd.AddCommand(control.NewPersistCommand(cfg))
	cmd.AddCommand(control.NewFlushCommand(cfg))
	cmd.AddCommand(control.NewStatsCommand(cfg))
	cmd.AddCommand(packets.NewCommand(cfg))
	cmd.AddCommand(decode.NewDecodeCommand())
	cmd.AddCommand(decode.NewDumpCommand())
	cmd.AddCommand(send.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file path (default %s)", pkgconfig.DefaultConfigPath()))
	return cmd
}
