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
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
	"jinr.ru/greenlab/go-gemroc/pkg/srv"
)

const (
	PacketsBucket = "gemroc_packets"
)

// Record is a decoded packet as it is stored in the state database
type Record struct {
	// Timestamp is the receive time in milliseconds
	Timestamp uint64         `json:"timestamp"`
	Source    string         `json:"source,omitempty"`
	Summary   string         `json:"summary"`
	Packet    *layers.Packet `json:"packet"`
}

type State struct {
	context.Context
	DB *bbolt.DB
}

// NewState opens the database at path, creating missing parent directories
func NewState(ctx context.Context, path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &State{
		Context: ctx,
		DB:      db,
	}
	if err := s.CreateBucket(PacketsBucket); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

// CreateBucket ...
func (s *State) CreateBucket(name string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func packetsBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(PacketsBucket))
	if b == nil {
		return nil, errors.New(fmt.Sprintf("Bucket not found: %s", PacketsBucket))
	}
	return b, nil
}

// PutRecord stores the record under its packet number, replacing a
// previous packet with the same number
func (s *State) PutRecord(r *Record) error {
	log.Debug("Storing packet: %s", r.Summary)
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := packetsBucket(tx)
		if err != nil {
			return err
		}
		return b.Put(uint64ToByte(r.Packet.PacketNo), data)
	})
}

// GetRecord ...
func (s *State) GetRecord(packetNo uint64) (*Record, error) {
	log.Debug("Getting packet: %d", packetNo)
	r := &Record{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := packetsBucket(tx)
		if err != nil {
			return err
		}
		data := b.Get(uint64ToByte(packetNo))
		if data == nil {
			return srv.ErrPacketNotFound{PacketNo: packetNo}
		}
		return yaml.Unmarshal(data, r)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRecords returns up to limit records with the highest packet numbers,
// highest first. The packet itself is left out of the listed records.
func (s *State) ListRecords(limit int) ([]*Record, error) {
	var records []*Record
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := packetsBucket(tx)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(records) < limit); k, v = c.Prev() {
			r := &Record{}
			if err := yaml.Unmarshal(v, r); err != nil {
				log.Error("Error while unmarshalling packet %d: %s", binary.BigEndian.Uint64(k), err)
				return err
			}
			r.Packet = nil
			records = append(records, r)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of stored packets
func (s *State) Count() (int, error) {
	var n int
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := packetsBucket(tx)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Trim removes the packets with the lowest numbers so that at most keep remain
func (s *State) Trim(keep int) (int, error) {
	var stale [][]byte
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := packetsBucket(tx)
		if err != nil {
			return err
		}
		c := b.Cursor()
		n := 0
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			n++
			if n > keep {
				stale = append(stale, append([]byte{}, k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) > 0 {
		log.Debug("Trimmed %d packets from state", len(stale))
	}
	return len(stale), nil
}
