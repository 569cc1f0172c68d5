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

package cmd

import (
	"bytes"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/command"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(&bytes.Buffer{})
	configPath := filepath.Join(t.TempDir(), "config")
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFrame(t *testing.T, p *layers.Packet) string {
	t.Helper()
	data, err := p.Bytes()
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), "frame.bin")
	require.NoError(t, os.WriteFile(name, data, 0644))
	return name
}

func TestDecode(t *testing.T) {
	p := layers.NewPacket(77, layers.Status{}, []layers.DataEntry{{Adc: 1}, {Adc: 2}})
	name := writeFrame(t, p)

	out, err := execute(t, "decode", "--output", "summary", name)
	require.NoError(t, err)
	require.Equal(t, "no: 77, size: 2\n", out)

	out, err = execute(t, "decode", name)
	require.NoError(t, err)
	require.Equal(t, p.Tree().String(), out)

	out, err = execute(t, "decode", "--output", "yaml", name)
	require.NoError(t, err)
	require.Contains(t, out, "packet_no: 77")

	_, err = execute(t, "decode", "--output", "xml", name)
	require.Error(t, err)
}

func TestDecodeHex(t *testing.T) {
	data, err := layers.NewPacket(5, layers.Status{}, nil).Bytes()
	require.NoError(t, err)
	text := hex.EncodeToString(data)
	var lines []string
	for len(text) > 60 {
		lines = append(lines, text[:60])
		text = text[60:]
	}
	lines = append(lines, text)
	name := filepath.Join(t.TempDir(), "frame.hex")
	require.NoError(t, os.WriteFile(name, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	out, err := execute(t, "decode", "--hex", "--output", "summary", name)
	require.NoError(t, err)
	require.Equal(t, "no: 5, size: 0\n", out)
}

func TestDecodeErrors(t *testing.T) {
	name := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(name, make([]byte, 100), 0644))
	_, err := execute(t, "decode", name)
	require.ErrorAs(t, err, &layers.ErrNotThisProtocol{})

	data := make([]byte, layers.PacketSize)
	data[layers.DataCountOffset] = 0xFF
	data[layers.DataCountOffset+1] = 0xFF
	require.NoError(t, os.WriteFile(name, data, 0644))
	_, err = execute(t, "decode", name)
	require.ErrorAs(t, err, &layers.ErrMalformedCount{})
}

func TestDump(t *testing.T) {
	name := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(name)
	require.NoError(t, err)
	w, err := capture.NewWriter(f, nil)
	require.NoError(t, err)
	src := &net.UDPAddr{IP: net.IPv4(10, 1, 1, 1), Port: 4000}
	first, err := command.SyntheticPacket(1, 3)
	require.NoError(t, err)
	second, err := command.SyntheticPacket(2, 0)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(time.Unix(10, 0), src, first))
	require.NoError(t, w.WritePayload(time.Unix(11, 0), src, []byte{1, 2, 3}))
	require.NoError(t, w.WritePacket(time.Unix(12, 0), src, second))
	require.NoError(t, f.Close())

	out, err := execute(t, "dump", name)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "#1 "))
	require.Contains(t, lines[0], "10.1.1.1:4000 -> 0.0.0.0:48350")
	require.True(t, strings.HasSuffix(lines[0], "no: 1, size: 3"))
	require.True(t, strings.HasPrefix(lines[1], "#3 "))
	require.True(t, strings.HasSuffix(lines[1], "no: 2, size: 0"))

	out, err = execute(t, "dump", "--tree", name)
	require.NoError(t, err)
	require.Contains(t, out, layers.ProtocolName)
}

func TestConfigInitShow(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sub", "config")
	run := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := NewRootCommand(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", configPath}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("config", "init")
	require.NoError(t, err)
	require.Contains(t, out, configPath)
	require.FileExists(t, configPath)

	_, err = run("config", "init")
	require.Error(t, err)
	_, err = run("config", "init", "--overwrite")
	require.NoError(t, err)

	out, err = run("--log-level", "debug", "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "log_level: debug")
	require.Contains(t, out, "port: 48350")

	_, err = run("--log-level", "verbose", "config", "show")
	require.Error(t, err)
}

func TestSendWrongEntries(t *testing.T) {
	for _, entries := range []string{"-1", "181"} {
		_, err := execute(t, "send", "--to", "127.0.0.1:1", "--entries", entries)
		require.ErrorAs(t, err, &command.ErrEntries{})
	}
}
