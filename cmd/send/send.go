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

package send

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const (
	ToOptionName       = "to"
	CountOptionName    = "count"
	StartNoOptionName  = "start-no"
	EntriesOptionName  = "entries"
	IntervalOptionName = "interval"
	ReplayOptionName   = "replay"
)

func NewCommand() *cobra.Command {
	var to, replay string
	var count, entries int
	var startNo uint64
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send GEMROC frames over UDP",
		Long:  "Send synthetic GEMROC frames, or replay the frames of a capture file, to a receiver.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if replay != "" {
				return nil
			}
			return command.CheckEntries(entries)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			sender, err := command.NewSender(to)
			if err != nil {
				return err
			}
			defer sender.Close()
			sender.Interval = interval

			if replay != "" {
				f, err := os.Open(replay)
				if err != nil {
					return err
				}
				defer f.Close()
				reader, err := capture.NewReader(f)
				if err != nil {
					return err
				}
				err = sender.Replay(ctx, reader)
				log.Info("Sent %d frames", sender.Sent)
				return err
			}

			err = sender.SendSynthetic(ctx, startNo, count, entries)
			log.Info("Sent %d frames", sender.Sent)
			return err
		},
	}
	cmd.Flags().StringVar(&to, ToOptionName, fmt.Sprintf("127.0.0.1:%d", layers.GemrocPort), "Receiver address")
	cmd.Flags().IntVar(&count, CountOptionName, 1, "Number of synthetic frames")
	cmd.Flags().Uint64Var(&startNo, StartNoOptionName, 0, "Packet number of the first synthetic frame")
	cmd.Flags().IntVar(&entries, EntriesOptionName, layers.MaxDataCount, fmt.Sprintf("Data entries per synthetic frame, at most %d", layers.MaxDataCount))
	cmd.Flags().DurationVar(&interval, IntervalOptionName, 0, "Pause between frames")
	cmd.Flags().StringVar(&replay, ReplayOptionName, "", "Capture file to replay instead of sending synthetic frames")
	return cmd
}
