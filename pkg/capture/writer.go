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

package capture

import (
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	golayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"jinr.ru/greenlab/go-gemroc/pkg/layers"
)

const (
	SnapLen = 65536
	ipv4TTL = 64
)

// Writer writes UDP payloads as LinkTypeRaw records so that files can be
// read back by Reader and by other pcap tools
type Writer struct {
	w *pcapgo.Writer
	// Dst is the address written as the destination of every record
	Dst *net.UDPAddr
}

func NewWriter(w io.Writer, dst *net.UDPAddr) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(SnapLen, golayers.LinkTypeRaw); err != nil {
		return nil, err
	}
	if dst == nil {
		dst = &net.UDPAddr{IP: net.IPv4zero, Port: layers.GemrocPort}
	}
	return &Writer{w: pw, Dst: dst}, nil
}

func ipv4(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return net.IPv4zero.To4()
}

// WritePayload writes one datagram received from src at timestamp
func (w *Writer) WritePayload(timestamp time.Time, src *net.UDPAddr, payload []byte) error {
	if src == nil {
		src = &net.UDPAddr{IP: net.IPv4zero}
	}
	ip := &golayers.IPv4{
		Version:  4,
		TTL:      ipv4TTL,
		Protocol: golayers.IPProtocolUDP,
		SrcIP:    ipv4(src.IP),
		DstIP:    ipv4(w.Dst.IP),
	}
	udp := &golayers.UDP{
		SrcPort: golayers.UDPPort(src.Port),
		DstPort: golayers.UDPPort(w.Dst.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(payload)); err != nil {
		return err
	}
	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     timestamp,
		CaptureLength: len(data),
		Length:        len(data),
	}
	return w.w.WritePacket(ci, data)
}

// WritePacket encodes p and writes it as a datagram from src
func (w *Writer) WritePacket(timestamp time.Time, src *net.UDPAddr, p *layers.Packet) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	return w.WritePayload(timestamp, src, data)
}
