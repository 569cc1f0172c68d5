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

// Package capture reads GEMROC frames out of pcap/pcapng files and writes
// received frames as raw IPv4/UDP pcap records.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/google/gopacket"
	golayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const pcapngMagic = 0x0A0D0D0A

// Frame is a GEMROC datagram found in a capture. Exactly one of Packet
// and Err is set. Payload holds the UDP payload as it was captured,
// reserved and padding bytes included.
type Frame struct {
	gopacket.CaptureInfo
	Index   int
	Src     *net.UDPAddr
	Dst     *net.UDPAddr
	Payload []byte
	Packet  *layers.Packet
	Err     error
}

type Stats struct {
	Read      int `json:"read"`
	Decoded   int `json:"decoded"`
	Malformed int `json:"malformed"`
	Skipped   int `json:"skipped"`
}

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() golayers.LinkType
}

type Reader struct {
	source *gopacket.PacketSource
	// AnyPort makes the reader try every UDP payload, not only the ones
	// sent to or from GemrocPort
	AnyPort bool
	Stats
}

// NewReader detects pcap or pcapng format and prepares decoding down to
// the GEMROC layer
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, err
	}

	var pr packetReader
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		pr, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		pr, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("Capture link type: %s", pr.LinkType())

	source := gopacket.NewPacketSource(pr, pr.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{NoCopy: true}
	return &Reader{source: source}, nil
}

func udpAddrs(packet gopacket.Packet) (src, dst *net.UDPAddr) {
	udp, ok := packet.Layer(golayers.LayerTypeUDP).(*golayers.UDP)
	if !ok {
		return nil, nil
	}
	src = &net.UDPAddr{Port: int(udp.SrcPort)}
	dst = &net.UDPAddr{Port: int(udp.DstPort)}
	switch l := packet.NetworkLayer().(type) {
	case *golayers.IPv4:
		src.IP, dst.IP = l.SrcIP, l.DstIP
	case *golayers.IPv6:
		src.IP, dst.IP = l.SrcIP, l.DstIP
	}
	return src, dst
}

// Next returns the next GEMROC datagram. Packets of other protocols are
// skipped. io.EOF is returned at the end of the capture.
func (r *Reader) Next() (*Frame, error) {
	for {
		packet, err := r.source.NextPacket()
		if err != nil {
			return nil, err
		}
		r.Read++

		frame := &Frame{
			CaptureInfo: packet.Metadata().CaptureInfo,
			Index:       r.Read,
		}
		frame.Src, frame.Dst = udpAddrs(packet)

		if g, ok := packet.Layer(layers.GemrocLayerType).(*layers.GemrocLayer); ok {
			r.Decoded++
			p := g.Packet
			frame.Packet = &p
			frame.Payload = g.Contents
			return frame, nil
		}

		if r.AnyPort {
			if f, ok := r.decodeUDPPayload(packet, frame); ok {
				return f, nil
			}
		}

		if errLayer := packet.ErrorLayer(); errLayer != nil {
			var malformed layers.ErrMalformedCount
			if errors.As(errLayer.Error(), &malformed) {
				r.Malformed++
				log.Warning("Packet %d: %s", frame.Index, malformed)
				frame.Err = malformed
				if udp, ok := packet.Layer(golayers.LayerTypeUDP).(*golayers.UDP); ok {
					frame.Payload = udp.Payload
				}
				return frame, nil
			}
			log.Debug("Packet %d: %s", frame.Index, errLayer.Error())
		}
		r.Skipped++
	}
}

func (r *Reader) decodeUDPPayload(packet gopacket.Packet, frame *Frame) (*Frame, bool) {
	udp, ok := packet.Layer(golayers.LayerTypeUDP).(*golayers.UDP)
	if !ok {
		return nil, false
	}
	p, err := layers.Decode(udp.Payload)
	var malformed layers.ErrMalformedCount
	switch {
	case err == nil:
		r.Decoded++
		frame.Packet = p
		frame.Payload = udp.Payload
		return frame, true
	case errors.As(err, &malformed):
		r.Malformed++
		log.Warning("Packet %d: %s", frame.Index, malformed)
		frame.Err = malformed
		frame.Payload = udp.Payload
		return frame, true
	}
	return nil, false
}

// ReadAll returns every GEMROC datagram left in the capture
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
