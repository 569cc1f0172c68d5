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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

func frameHeader(f *capture.Frame) string {
	return fmt.Sprintf("#%d %s %s -> %s", f.Index, f.Timestamp.Format("15:04:05.000000"), f.Src, f.Dst)
}

func NewDumpCommand() *cobra.Command {
	var output string
	var tree, anyPort bool
	cmd := &cobra.Command{
		Use:   "dump <pcap|->",
		Short: "Print GEMROC frames found in a pcap or pcapng capture",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if tree {
				output = command.OutputTree
			}
			return command.CheckOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			reader, err := capture.NewReader(in)
			if err != nil {
				return err
			}
			reader.AnyPort = anyPort

			out := cmd.OutOrStdout()
			for {
				frame, err := reader.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				if frame.Err != nil {
					fmt.Fprintf(out, "%s %s\n", frameHeader(frame), frame.Err)
					continue
				}
				if output == command.OutputSummary {
					fmt.Fprintf(out, "%s %s\n", frameHeader(frame), frame.Packet.Summary())
					continue
				}
				fmt.Fprintln(out, frameHeader(frame))
				if err := command.WritePacket(out, output, frame.Packet); err != nil {
					return err
				}
			}
			log.Info("Frames read: %d, decoded: %d, malformed: %d, skipped: %d",
				reader.Read, reader.Decoded, reader.Malformed, reader.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, OutputOptionName, command.OutputSummary, fmt.Sprintf("Output format. %s", command.HelpOutputs))
	cmd.Flags().BoolVar(&tree, TreeOptionName, false, "Print the full field tree of every frame")
	cmd.Flags().BoolVar(&anyPort, AnyPortOptionName, false, "Try to decode UDP datagrams on any port")
	return cmd
}
