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

package layers

import (
	"fmt"
)

// ErrNotThisProtocol is returned when a buffer can not be a GEMROC frame.
// Callers are expected to try other decoders rather than report it.
type ErrNotThisProtocol struct {
	Length int
}

func (e ErrNotThisProtocol) Error() string {
	return fmt.Sprintf("Not a GEMROC frame: length %d, must be %d", e.Length, PacketSize)
}

// ErrMalformedCount is returned when the data count field claims more
// entries than the data list can hold
type ErrMalformedCount struct {
	Raw   uint16
	Count uint16
}

func (e ErrMalformedCount) Error() string {
	return fmt.Sprintf("Malformed GEMROC frame: data count %d (raw 0x%04x) exceeds %d", e.Count, e.Raw, MaxDataCount)
}

// ErrInternalConsistency means the frame layout constants disagree with each other
type ErrInternalConsistency struct {
	What string
}

func (e ErrInternalConsistency) Error() string {
	return fmt.Sprintf("GEMROC layout is inconsistent: %s", e.What)
}

// ErrEncode is returned when a Packet can not be written in wire format
type ErrEncode struct {
	What string
}

func (e ErrEncode) Error() string {
	return fmt.Sprintf("Error while encoding GEMROC frame: %s", e.What)
}
