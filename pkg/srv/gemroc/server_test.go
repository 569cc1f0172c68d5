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
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/srv"
)

func newTestServer(t *testing.T, ctx context.Context) *GemrocServer {
	t.Helper()
	cfg := config.NewDefaultConfig()
	dir := t.TempDir()
	cfg.SetPath(filepath.Join(dir, config.ConfigFile))
	cfg.DBPath = filepath.Join(dir, config.DBFile)
	cfg.GemrocConfig.Address = "127.0.0.1"
	cfg.GemrocConfig.Port = 0
	cfg.GemrocConfig.Dir = dir
	s, err := NewGemrocServer(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.State.Close() })
	return s
}

func decodedPacket(data []byte, from *net.UDPAddr) gopacket.Packet {
	in := srv.NewInPacket(data, from)
	packet := gopacket.NewPacket(in.Data, layers.GemrocLayerType, gopacket.Default)
	packet.Metadata().CaptureInfo = in.CaptureInfo
	return packet
}

func TestHandlePacket(t *testing.T) {
	s := newTestServer(t, context.Background())
	from := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 6000}

	good, err := layers.NewPacket(42, layers.Status{}, []layers.DataEntry{{Overflow: true}}).Bytes()
	require.NoError(t, err)
	s.HandlePacket(decodedPacket(good, from))

	malformed := append([]byte{}, good...)
	malformed[layers.PacketSize-1] = 0xff
	s.HandlePacket(decodedPacket(malformed, from))

	s.HandlePacket(decodedPacket([]byte("short"), from))

	require.Equal(t, Stats{Received: 3, Decoded: 1, Rejected: 1, Malformed: 1}, s.Stats())

	rec, err := s.State.GetRecord(42)
	require.NoError(t, err)
	require.Equal(t, "no: 42, size: 1", rec.Summary)
	require.Equal(t, "10.0.0.2:6000", rec.Source)
	require.True(t, rec.Packet.Entries[0].Overflow)
}

func TestPersistFlush(t *testing.T) {
	s := newTestServer(t, context.Background())
	from := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 6000}

	require.NoError(t, s.Flush())

	filename, err := s.Persist("", "run1")
	require.NoError(t, err)
	require.Equal(t, s.GemrocConfig.Dir, filepath.Dir(filename))
	require.Contains(t, filepath.Base(filename), "run1_gemroc_")

	p := layers.NewPacket(7, layers.Status{}, nil)
	data, err := p.Bytes()
	require.NoError(t, err)
	s.HandlePacket(decodedPacket(data, from))
	s.HandlePacket(decodedPacket([]byte("junk"), from))
	require.NoError(t, s.Flush())
	require.Equal(t, uint64(2), s.Stats().Persisted)

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	r, err := capture.NewReader(f)
	require.NoError(t, err)
	frames, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, p, frames[0].Packet)
	require.Equal(t, 2, r.Read)
}

func TestPersistFilename(t *testing.T) {
	require.Equal(t, "dir/gemroc_x.pcap", persistFilename("dir", "", "x"))
	require.Equal(t, "dir/run_gemroc_x.pcap", persistFilename("dir", "run", "x"))
}

func TestServeUDP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestServer(t, ctx)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(conn) }()

	client, err := net.Dial("udp", conn.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	for no := uint64(1); no <= 3; no++ {
		data, err := layers.NewPacket(no, layers.Status{}, make([]layers.DataEntry, int(no))).Bytes()
		require.NoError(t, err)
		_, err = client.Write(data)
		require.NoError(t, err)
	}
	_, err = client.Write([]byte("not gemroc"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := s.Stats()
		return st.Decoded == 3 && st.Rejected == 1
	}, 5*time.Second, 10*time.Millisecond)

	records, err := s.State.ListRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "no: 3, size: 3", records[0].Summary)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// the API may still be answering requests after Serve returns
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/packets/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	count, err := s.State.Count()
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestServer(t, ctx)
	s.Config.ApiConfig.Port = 0

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err := s.State.Count()
	require.ErrorIs(t, err, bbolt.ErrDatabaseNotOpen)
}

func TestNewGemrocServerCreatesDBDir(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "missing", "sub", config.DBFile)
	cfg.GemrocConfig.Address = "127.0.0.1"
	cfg.GemrocConfig.Port = 0

	s, err := NewGemrocServer(context.Background(), cfg)
	require.NoError(t, err)
	defer s.State.Close()
	require.FileExists(t, cfg.DBPath)
}

func TestRunStopsOnApiFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	s := newTestServer(t, context.Background())
	s.Config.ApiConfig.Address = "127.0.0.1"
	s.Config.ApiConfig.Port = busy.Addr().(*net.TCPAddr).Port

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
