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

package srv

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
)

type InPacket struct {
	Data []byte
	gopacket.CaptureInfo
}

// NewInPacket copies data so the read buffer can be reused
func NewInPacket(data []byte, addr *net.UDPAddr) InPacket {
	p := InPacket{
		Data: make([]byte, len(data)),
		CaptureInfo: gopacket.CaptureInfo{
			Length:        len(data),
			CaptureLength: len(data),
			Timestamp:     time.Now(),
			AncillaryData: []interface{}{addr},
		},
	}
	copy(p.Data, data)
	return p
}

// GetAddrPort returns the UDPAddr of the device that sent the packet
func GetAddrPort(packet gopacket.Packet) (*net.UDPAddr, error) {
	meta := packet.Metadata()
	if len(meta.CaptureInfo.AncillaryData) >= 1 {
		ancillary := meta.CaptureInfo.AncillaryData[0]
		udpAddr, ok := ancillary.(*net.UDPAddr)
		if !ok {
			return nil, ErrGetAddr{}
		}
		return udpAddr, nil
	}
	return nil, ErrGetAddr{}
}

// PacketSource feeds packets put to ChIn to a gopacket.PacketSource.
// It reports io.EOF once the context is done or ChIn is closed.
type PacketSource struct {
	context.Context
	ChIn chan InPacket
}

func NewPacketSource(ctx context.Context, size int) *PacketSource {
	return &PacketSource{
		Context: ctx,
		ChIn:    make(chan InPacket, size),
	}
}

func (ps *PacketSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	select {
	case p, ok := <-ps.ChIn:
		if !ok {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return p.Data, p.CaptureInfo, nil
	case <-ps.Done():
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
}
