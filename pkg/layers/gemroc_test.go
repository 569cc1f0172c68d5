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
	"net"
	"testing"

	"github.com/google/gopacket"
	golayers "github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

func serializeUDP(t *testing.T, dstPort uint16, payload gopacket.SerializableLayer) []byte {
	t.Helper()
	eth := &golayers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: golayers.EthernetTypeIPv4,
	}
	ip := &golayers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: golayers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{192, 168, 1, 1},
	}
	udp := &golayers.UDP{
		SrcPort: 50000,
		DstPort: golayers.UDPPort(dstPort),
	}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload))
	return buf.Bytes()
}

func TestGemrocLayerOverUDP(t *testing.T) {
	g := &GemrocLayer{Packet: *NewPacket(42, Status{AsicEnableStatus: 0xa}, []DataEntry{{PileUp: true, Overflow: true}})}
	data := serializeUDP(t, GemrocPort, g)

	packet := gopacket.NewPacket(data, golayers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	layer := packet.Layer(GemrocLayerType)
	require.NotNil(t, layer)
	decoded := layer.(*GemrocLayer)
	require.Equal(t, g.Packet, decoded.Packet)
	require.Len(t, decoded.LayerContents(), PacketSize)
	require.Empty(t, decoded.LayerPayload())
	require.Equal(t, "no: 42, size: 1", decoded.Summary())
}

func TestGemrocLayerWrongSizeIsPayload(t *testing.T) {
	data := serializeUDP(t, GemrocPort, gopacket.Payload(make([]byte, 100)))

	packet := gopacket.NewPacket(data, golayers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	require.Nil(t, packet.Layer(GemrocLayerType))
	require.NotNil(t, packet.ApplicationLayer())
	require.Len(t, packet.ApplicationLayer().Payload(), 100)
}

func TestGemrocLayerOtherPort(t *testing.T) {
	g := &GemrocLayer{Packet: *NewPacket(1, Status{}, nil)}
	data := serializeUDP(t, 40000, g)

	packet := gopacket.NewPacket(data, golayers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, packet.Layer(GemrocLayerType))
}

func TestGemrocLayerMalformedCount(t *testing.T) {
	raw := frame(1, nil, nil, 0xffff)
	packet := gopacket.NewPacket(raw, GemrocLayerType, gopacket.Default)
	require.Nil(t, packet.Layer(GemrocLayerType))
	errLayer := packet.ErrorLayer()
	require.NotNil(t, errLayer)
	var malformed ErrMalformedCount
	require.ErrorAs(t, errLayer.Error(), &malformed)
}

func TestGemrocLayerDecodingLayerParser(t *testing.T) {
	var g GemrocLayer
	parser := gopacket.NewDecodingLayerParser(GemrocLayerType, &g)
	decoded := []gopacket.LayerType{}

	raw := frame(77, []byte{0, 0, 0x10}, []uint64{0xfff0000000000000}, 1<<3)
	require.NoError(t, parser.DecodeLayers(raw, &decoded))
	require.Equal(t, []gopacket.LayerType{GemrocLayerType}, decoded)
	require.Equal(t, uint64(77), g.PacketNo)
	require.Equal(t, uint8(0x10), g.Status.ClkState)
	require.Equal(t, uint16(0xfff), g.Entries[0].Adc)
}

func TestGemrocLayerSerializeFixLengths(t *testing.T) {
	g := &GemrocLayer{Packet: Packet{Entries: []DataEntry{{Adc: 1}, {Adc: 2}}}}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, g))
	p, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(2), p.DataCount)

	g.DataCount = 0
	require.Error(t, gopacket.SerializeLayers(gopacket.NewSerializeBuffer(), gopacket.SerializeOptions{}, g))
}
