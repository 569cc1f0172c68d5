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
	"context"
	"errors"
	"io"
	"net"
	"time"

	"jinr.ru/greenlab/go-gemroc/pkg/capture"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

// CheckEntries validates the number of data entries of a synthetic frame
func CheckEntries(n int) error {
	if n < 0 || n > layers.MaxDataCount {
		return ErrEntries{Entries: n}
	}
	return nil
}

// SyntheticPacket builds a frame with n entries whose fields are derived
// from the packet number and the entry index
func SyntheticPacket(packetNo uint64, n int) (*layers.Packet, error) {
	if err := CheckEntries(n); err != nil {
		return nil, err
	}
	entries := make([]layers.DataEntry, n)
	for i := range entries {
		entries[i] = layers.DataEntry{
			Adc:           uint16((packetNo + uint64(i)) & 0xFFF),
			TimestampFPGA: uint32(packetNo*uint64(layers.MaxDataCount)+uint64(i)) & 0x7FFFFFFF,
			TimestampASIC: uint16(i) & 0xFFF,
			ChannelID:     uint8(i % 32),
			AsicID:        uint8(i % 4),
			PileUp:        i%7 == 6,
			Overflow:      i%11 == 10,
		}
	}
	status := layers.Status{
		ClkState:         uint8(packetNo % 32),
		AsicEnableStatus: 0xF,
	}
	return layers.NewPacket(packetNo, status, entries), nil
}

// Sender writes GEMROC frames to a UDP address
type Sender struct {
	conn net.Conn
	// Interval is the pause between two frames
	Interval time.Duration
	Sent     int
}

func NewSender(addr string) (*Sender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	log.Debug("Sending frames from %s to %s", conn.LocalAddr(), conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}

func (s *Sender) send(ctx context.Context, payload []byte) error {
	if s.Sent > 0 && s.Interval > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Interval):
		}
	}
	if _, err := s.conn.Write(payload); err != nil {
		return err
	}
	s.Sent++
	return nil
}

// SendSynthetic sends count synthetic frames numbered from startNo
func (s *Sender) SendSynthetic(ctx context.Context, startNo uint64, count, entries int) error {
	if err := CheckEntries(entries); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		p, err := SyntheticPacket(startNo+uint64(i), entries)
		if err != nil {
			return err
		}
		data, err := p.Bytes()
		if err != nil {
			return err
		}
		if err := s.send(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

// Replay sends every GEMROC frame found in a capture byte for byte as it
// was captured, frames with a malformed count included.
func (s *Sender) Replay(ctx context.Context, reader *capture.Reader) error {
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if frame.Err != nil {
			log.Debug("Replay frame %d: %s", frame.Index, frame.Err)
		}
		if err := s.send(ctx, frame.Payload); err != nil {
			return err
		}
	}
}
