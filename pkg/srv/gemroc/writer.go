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

package gemroc

import (
	"net"
	"os"
	"time"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

// Writer persists received datagrams to a pcap file
type Writer struct {
	file *os.File
	*capture.Writer
	Filename string
}

func NewWriter(filename string, dst *net.UDPAddr) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	w, err := capture.NewWriter(file, dst)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Writer{
		file:     file,
		Writer:   w,
		Filename: filename,
	}, nil
}

func (w *Writer) Write(timestamp time.Time, src *net.UDPAddr, payload []byte) error {
	return w.WritePayload(timestamp, src, payload)
}

func (w *Writer) Flush() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
