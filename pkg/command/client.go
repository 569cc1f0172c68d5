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
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/srv/gemroc"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

var _ Client = &ApiClient{}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: cfg.ApiPrefix(),
	}
}

func (c *ApiClient) packetUrl(packetNo uint64) string {
	return fmt.Sprintf("%s/packets/%d", c.ApiPrefix, packetNo)
}

func checkResponse(r *req.Resp) error {
	if r.Response().StatusCode == http.StatusOK {
		return nil
	}
	return ErrResponse{
		Status:  r.Response().Status,
		Message: strings.TrimSpace(r.String()),
	}
}

// ListPackets returns up to limit stored packets, newest first
func (c *ApiClient) ListPackets(limit int) ([]*gemroc.Record, error) {
	r, err := req.Get(fmt.Sprintf("%s/packets", c.ApiPrefix), req.Param{"limit": limit})
	if err != nil {
		return nil, err
	}
	if err := checkResponse(r); err != nil {
		return nil, err
	}
	var records []*gemroc.Record
	err = r.ToJSON(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetPacket returns the stored packet with the given number
func (c *ApiClient) GetPacket(packetNo uint64) (*gemroc.Record, error) {
	r, err := req.Get(c.packetUrl(packetNo))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(r); err != nil {
		return nil, err
	}
	record := &gemroc.Record{}
	err = r.ToJSON(record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetPacketTree returns the field tree of a stored packet as text
func (c *ApiClient) GetPacketTree(packetNo uint64) (string, error) {
	r, err := req.Get(c.packetUrl(packetNo) + "/tree")
	if err != nil {
		return "", err
	}
	if err := checkResponse(r); err != nil {
		return "", err
	}
	return r.ToString()
}

// Stats returns the receiver counters
func (c *ApiClient) Stats() (*gemroc.Stats, error) {
	r, err := req.Get(fmt.Sprintf("%s/stats", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(r); err != nil {
		return nil, err
	}
	stats := &gemroc.Stats{}
	err = r.ToJSON(stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Persist asks the server to start writing received frames to a pcap file
// and returns the file name
func (c *ApiClient) Persist(dir, filePrefix string) (string, error) {
	persist := &gemroc.Persist{
		Dir:        dir,
		FilePrefix: filePrefix,
	}
	r, err := req.Post(fmt.Sprintf("%s/persist", c.ApiPrefix), req.BodyJSON(persist))
	if err != nil {
		return "", err
	}
	if err := checkResponse(r); err != nil {
		return "", err
	}
	resp := &gemroc.PersistResponse{}
	err = r.ToJSON(resp)
	if err != nil {
		return "", err
	}
	return resp.Filename, nil
}

// Flush asks the server to close the current pcap file
func (c *ApiClient) Flush() error {
	r, err := req.Get(fmt.Sprintf("%s/flush", c.ApiPrefix))
	if err != nil {
		return err
	}
	return checkResponse(r)
}
