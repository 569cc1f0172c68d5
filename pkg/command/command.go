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
	"fmt"

	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/srv/gemroc"
)

// Client is what the command line needs from a running gemroc server
type Client interface {
	ListPackets(limit int) ([]*gemroc.Record, error)
	GetPacket(packetNo uint64) (*gemroc.Record, error)
	GetPacketTree(packetNo uint64) (string, error)
	Stats() (*gemroc.Stats, error)
	Persist(dir, filePrefix string) (string, error)
	Flush() error
}

// ErrResponse is returned when the API answers with a non 200 status
type ErrResponse struct {
	Status  string
	Message string
}

func (e ErrResponse) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// ErrEntries is returned for a synthetic frame size out of 0..MaxDataCount
type ErrEntries struct {
	Entries int
}

func (e ErrEntries) Error() string {
	return fmt.Sprintf("Wrong number of data entries: %d, must be 0..%d", e.Entries, layers.MaxDataCount)
}
