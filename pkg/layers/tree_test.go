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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	p := NewPacket(42, Status{ClkState: 0b10110, AsicEnableStatus: 0xa}, []DataEntry{
		{TimestampASIC: 3, ChannelID: 7, PileUp: true, Overflow: true},
		{Adc: 100},
	})
	root := p.Tree()

	require.Equal(t, ProtocolName, root.Label)
	require.Equal(t, PacketSize, root.Length)
	require.Len(t, root.Children, 4)

	packetNo := root.Find("gemroc_udp.pack_no")
	require.NotNil(t, packetNo)
	require.Equal(t, "42", packetNo.Display)
	require.Equal(t, 0, packetNo.Offset)
	require.Equal(t, 8, packetNo.Length)

	status := root.Find("gemroc_udp.status")
	require.NotNil(t, status)
	require.Equal(t, "0x16000a", status.Display)
	require.Equal(t, 13, status.Offset)
	require.Equal(t, 3, status.Length)
	require.Len(t, status.Children, 4)
	require.Equal(t, "10110b", root.Find("gemroc_udp.status.clk_st").Display)
	require.Equal(t, "0xa", root.Find("gemroc_udp.status.asic_enable_status").Display)

	dataList := root.Find("gemroc_udp.data_list")
	require.NotNil(t, dataList)
	require.Equal(t, 16, dataList.Offset)
	require.Equal(t, 1440, dataList.Length)
	require.Len(t, dataList.Children, 2)
	require.Equal(t, "[1]", dataList.Children[1].Label)
	require.Equal(t, 24, dataList.Children[1].Offset)
	require.Len(t, dataList.Children[0].Children, len(DataFields))

	tsAsic := root.FindAll("gemroc_udp.data.ts_asic")
	require.Len(t, tsAsic, 2)
	require.Equal(t, "12", tsAsic[0].Display)
	require.Equal(t, uint64(12), tsAsic[0].Value)

	adc := root.FindAll("gemroc_udp.data.adc")
	require.Equal(t, "100", adc[1].Display)

	count := root.Find("gemroc_udp.data_cnt")
	require.Equal(t, "2", count.Display)
	require.Equal(t, 1456, count.Offset)

	require.Nil(t, root.Find("gemroc_udp.nothing"))
}

func TestTreeFormat(t *testing.T) {
	p := NewPacket(42, Status{AsicEnableStatus: 0xa}, []DataEntry{{PileUp: true, Overflow: true}})
	out := p.Tree().String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Equal(t, ProtocolName, lines[0])
	require.Equal(t, "    Packet no: 42", lines[1])
	require.Equal(t, "    Status: 0x00000a", lines[2])
	require.Equal(t, "        ...0 0000 .... .... .... .... = Clk state: 0b", lines[3])
	require.Contains(t, out, "\n    Data list\n")
	require.Contains(t, out, "\n        [0]: 0x0000000000000003\n")
	require.Contains(t, out, "= PileUp: 1\n")
	require.Contains(t, out, "= OverFlow: 1\n")
	require.Equal(t, "    0000 0000 0000 1... = Data count: 1", lines[len(lines)-1])
}
