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
	"errors"
	"fmt"
	"net"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"golang.org/x/sync/errgroup"

	"jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/layers"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
	"jinr.ru/greenlab/go-gemroc/pkg/srv"
)

const (
	InChSize       = 100
	ReadBufferSize = 65536
	// TrimEvery is how many stored packets pass between state trims
	TrimEvery = 100
)

type Stats struct {
	Received  uint64 `json:"received"`
	Decoded   uint64 `json:"decoded"`
	Rejected  uint64 `json:"rejected"`
	Malformed uint64 `json:"malformed"`
	Persisted uint64 `json:"persisted"`
}

type GemrocServer struct {
	context.Context
	*config.Config
	*net.UDPAddr
	State  *State
	api    *ApiServer
	source *srv.PacketSource

	mu     sync.Mutex
	writer *Writer

	received  uint64
	decoded   uint64
	rejected  uint64
	malformed uint64
	persisted uint64
}

func NewGemrocServer(ctx context.Context, cfg *config.Config) (*GemrocServer, error) {
	log.Info("Initializing gemroc server with address: %s", cfg.ListenAddr())

	uaddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr())
	if err != nil {
		return nil, err
	}

	state, err := NewState(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &GemrocServer{
		Context: ctx,
		Config:  cfg,
		UDPAddr: uaddr,
		State:   state,
		source:  srv.NewPacketSource(ctx, InChSize),
	}

	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		state.Close()
		return nil, err
	}
	s.api = apiServer

	return s, nil
}

// Run listens on the configured address, serves the API and blocks until
// the context is done or reading from the socket fails. The state is closed
// once both servers have stopped.
func (s *GemrocServer) Run() error {
	defer s.State.Close()
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}

	// either server failing stops the other one
	grp, ctx := errgroup.WithContext(s.Context)
	s.Context = ctx
	s.api.Context = ctx
	grp.Go(s.api.Run)
	grp.Go(func() error {
		return s.Serve(conn)
	})
	return grp.Wait()
}

// Serve reads GEMROC datagrams from conn until the context is done.
// conn is closed before Serve returns, the state is left open for the API.
// Serve can be called only once.
func (s *GemrocServer) Serve(conn net.PacketConn) error {
	// flush persisted file before exit
	defer s.Flush()

	errChan := make(chan error, 1)
	handlerDone := make(chan struct{})

	// Read packets from wire and put them to input queue
	go func() {
		defer close(s.source.ChIn)
		buffer := make([]byte, ReadBufferSize)
		for {
			length, addr, readErr := conn.ReadFrom(buffer)
			if readErr != nil {
				errChan <- readErr
				return
			}
			udpAddr, ok := addr.(*net.UDPAddr)
			if !ok {
				log.Debug("Drop packet from non UDP address %s", addr)
				continue
			}
			log.Debug("Received packet from %s length: %d", udpAddr, length)
			select {
			case s.source.ChIn <- srv.NewInPacket(buffer[:length], udpAddr):
			case <-s.Done():
				return
			}
		}
	}()

	// Decode packets from input queue and handle them
	go func() {
		defer close(handlerDone)
		source := gopacket.NewPacketSource(s.source, layers.GemrocLayerType)
		for packet := range source.Packets() {
			s.HandlePacket(packet)
		}
	}()

	var err error
	select {
	case <-s.Done():
		log.Info("Stopping gemroc server: %s", s.Err())
	case err = <-errChan:
	}
	conn.Close()
	<-handlerDone
	return err
}

// HandlePacket stores a decoded frame and accounts for rejected ones
func (s *GemrocServer) HandlePacket(packet gopacket.Packet) {
	atomic.AddUint64(&s.received, 1)
	ci := packet.Metadata().CaptureInfo
	udpAddr, addrErr := srv.GetAddrPort(packet)
	if addrErr != nil {
		log.Debug("%s", addrErr)
	}

	s.persist(ci.Timestamp, udpAddr, packet.Data())

	if g, ok := packet.Layer(layers.GemrocLayerType).(*layers.GemrocLayer); ok {
		atomic.AddUint64(&s.decoded, 1)
		p := g.Packet
		record := &Record{
			Timestamp: uint64(ci.Timestamp.UnixNano()) / uint64(time.Millisecond),
			Summary:   p.Summary(),
			Packet:    &p,
		}
		if udpAddr != nil {
			record.Source = udpAddr.String()
		}
		log.Debug("GEMROC frame: %s", record.Summary)
		if err := s.State.PutRecord(record); err != nil {
			log.Error("Error while storing packet %d: %s", p.PacketNo, err)
			return
		}
		if s.GemrocConfig.KeepPackets > 0 && atomic.LoadUint64(&s.decoded)%TrimEvery == 0 {
			if _, err := s.State.Trim(s.GemrocConfig.KeepPackets); err != nil {
				log.Error("Error while trimming state: %s", err)
			}
		}
		return
	}

	if errLayer := packet.ErrorLayer(); errLayer != nil {
		var malformed layers.ErrMalformedCount
		if errors.As(errLayer.Error(), &malformed) {
			atomic.AddUint64(&s.malformed, 1)
			log.Warning("Drop packet from %s: %s", udpAddr, malformed)
			return
		}
	}
	atomic.AddUint64(&s.rejected, 1)
	log.Debug("Drop packet from %s: not a GEMROC frame (length %d)", udpAddr, ci.Length)
}

func (s *GemrocServer) persist(timestamp time.Time, src *net.UDPAddr, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return
	}
	if err := s.writer.Write(timestamp, src, data); err != nil {
		log.Error("Error while writing to file %s: %s", s.writer.Filename, err)
		return
	}
	atomic.AddUint64(&s.persisted, 1)
}

func (s *GemrocServer) Stats() Stats {
	return Stats{
		Received:  atomic.LoadUint64(&s.received),
		Decoded:   atomic.LoadUint64(&s.decoded),
		Rejected:  atomic.LoadUint64(&s.rejected),
		Malformed: atomic.LoadUint64(&s.malformed),
		Persisted: atomic.LoadUint64(&s.persisted),
	}
}

func persistFilename(dir, prefix, suffix string) string {
	filename := fmt.Sprintf("gemroc_%s.pcap", suffix)
	if prefix != "" {
		filename = fmt.Sprintf("%s_%s", prefix, filename)
	}
	return path.Join(dir, filename)
}

// Persist starts writing every received datagram to a new pcap file in dir.
// A file being written is flushed first. The new file name is returned.
func (s *GemrocServer) Persist(dir, filePrefix string) (string, error) {
	if dir == "" {
		dir = s.GemrocConfig.Dir
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	filename := persistFilename(dir, filePrefix, timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flush(); err != nil {
		log.Error("Error while flushing writer: %s", err)
	}
	// records carry the GEMROC port so that readers route them to the GEMROC layer
	dst := &net.UDPAddr{IP: s.UDPAddr.IP, Port: s.UDPAddr.Port}
	if dst.Port == 0 {
		dst.Port = layers.GemrocPort
	}
	w, err := NewWriter(filename, dst)
	if err != nil {
		return "", err
	}
	log.Info("Persist writer: %s", filename)
	s.writer = w
	return filename, nil
}

// Flush closes the file being written, if any
func (s *GemrocServer) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *GemrocServer) flush() error {
	if s.writer == nil {
		return nil
	}
	log.Info("Flush writer: %s", s.writer.Filename)
	err := s.writer.Flush()
	s.writer = nil
	return err
}
