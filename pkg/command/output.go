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

package command

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-gemroc/pkg/layers"
)

const (
	OutputSummary = "summary"
	OutputTree    = "tree"
	OutputJSON    = "json"
	OutputYAML    = "yaml"

	HelpOutputs = "Must be one of: summary, tree, json, yaml."
)

// ErrWrongOutput is returned for an unknown output format name
type ErrWrongOutput struct {
	Output string
}

func (e ErrWrongOutput) Error() string {
	return fmt.Sprintf("Wrong output format: %q. %s", e.Output, HelpOutputs)
}

func CheckOutput(output string) error {
	switch output {
	case OutputSummary, OutputTree, OutputJSON, OutputYAML:
		return nil
	}
	return ErrWrongOutput{Output: output}
}

// WriteValue writes v as indented JSON or YAML
func WriteValue(w io.Writer, output string, v interface{}) error {
	var data []byte
	var err error
	switch output {
	case OutputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case OutputYAML:
		data, err = yaml.Marshal(v)
	default:
		return ErrWrongOutput{Output: output}
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WritePacket writes a decoded packet in the given output format
func WritePacket(w io.Writer, output string, packet *layers.Packet) error {
	switch output {
	case OutputSummary:
		_, err := fmt.Fprintln(w, packet.Summary())
		return err
	case OutputTree:
		return packet.Tree().Format(w)
	}
	return WriteValue(w, output, packet)
}
