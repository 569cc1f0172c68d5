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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/srv/gemroc"
)

func newTestClient(t *testing.T, handler http.Handler) *ApiClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client := NewApiClient(config.NewDefaultConfig())
	client.ApiPrefix = ts.URL + "/api"
	return client
}

func TestNewApiClient(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.ApiConfig.Port = 9000
	require.Equal(t, "http://127.0.0.1:9000/api", NewApiClient(cfg).ApiPrefix)
}

func TestApiClient(t *testing.T) {
	packet := layers.NewPacket(5, layers.Status{ClkState: 3}, []layers.DataEntry{{Adc: 12}})
	record := &gemroc.Record{Timestamp: 1, Summary: packet.Summary(), Packet: packet}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/packets", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]*gemroc.Record{record})
	})
	mux.HandleFunc("/api/packets/5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(record)
	})
	mux.HandleFunc("/api/packets/5/tree", func(w http.ResponseWriter, r *http.Request) {
		packet.Tree().Format(w)
	})
	mux.HandleFunc("/api/packets/6", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "packet 6 not found", http.StatusNotFound)
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gemroc.Stats{Received: 4, Decoded: 3, Rejected: 1})
	})
	mux.HandleFunc("/api/persist", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		persist := &gemroc.Persist{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(persist))
		json.NewEncoder(w).Encode(gemroc.PersistResponse{
			Filename: fmt.Sprintf("%s/%s_gemroc_1.pcap", persist.Dir, persist.FilePrefix),
		})
	})
	mux.HandleFunc("/api/flush", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no file", http.StatusBadGateway)
	})
	client := newTestClient(t, mux)

	records, err := client.ListPackets(7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "no: 5, size: 1", records[0].Summary)

	got, err := client.GetPacket(5)
	require.NoError(t, err)
	require.Equal(t, uint8(3), got.Packet.Status.ClkState)
	require.Equal(t, uint16(12), got.Packet.Entries[0].Adc)

	tree, err := client.GetPacketTree(5)
	require.NoError(t, err)
	require.Equal(t, packet.Tree().String(), tree)

	_, err = client.GetPacket(6)
	var respErr ErrResponse
	require.True(t, errors.As(err, &respErr))
	require.Equal(t, "404 Not Found", respErr.Status)
	require.Equal(t, "packet 6 not found", respErr.Message)

	stats, err := client.Stats()
	require.NoError(t, err)
	require.Equal(t, &gemroc.Stats{Received: 4, Decoded: 3, Rejected: 1}, stats)

	filename, err := client.Persist("/data", "run1")
	require.NoError(t, err)
	require.Equal(t, "/data/run1_gemroc_1.pcap", filename)

	err = client.Flush()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no file")
}
