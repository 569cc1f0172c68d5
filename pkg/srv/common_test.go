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
	"errors"
	"io"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/require"
)

func TestPacketSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := NewPacketSource(ctx, 2)

	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}
	buf := []byte{1, 2, 3}
	ps.ChIn <- NewInPacket(buf, addr)
	buf[0] = 9

	data, ci, err := ps.ReadPacketData()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 3, ci.CaptureLength)

	packet := gopacket.NewPacket(data, gopacket.LayerTypePayload, gopacket.Default)
	packet.Metadata().CaptureInfo = ci
	got, err := GetAddrPort(packet)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	cancel()
	_, _, err = ps.ReadPacketData()
	require.True(t, errors.Is(err, io.EOF))
}

func TestPacketSourceClosed(t *testing.T) {
	ps := NewPacketSource(context.Background(), 1)
	close(ps.ChIn)
	_, _, err := ps.ReadPacketData()
	require.Equal(t, io.EOF, err)
}

func TestGetAddrPortMissing(t *testing.T) {
	packet := gopacket.NewPacket([]byte{1}, gopacket.LayerTypePayload, gopacket.Default)
	_, err := GetAddrPort(packet)
	require.Equal(t, ErrGetAddr{}, err)

	packet.Metadata().CaptureInfo.AncillaryData = []interface{}{"not an address"}
	_, err = GetAddrPort(packet)
	require.Equal(t, ErrGetAddr{}, err)
}
