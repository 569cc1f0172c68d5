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
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"jinr.ru/greenlab/go-gemroc/pkg/bitfield"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const (
	// MaxDataCount is the capacity of the data list
	MaxDataCount = 180

	PacketNoOffset = 0
	PacketNoSize   = 8

	// StatusOffset is the start of the 8 byte status container.
	// Only the three most significant bytes carry the status value.
	StatusOffset      = PacketNoOffset + PacketNoSize
	StatusSize        = 8
	StatusValueOffset = StatusOffset + 5
	StatusValueSize   = 3

	DataListOffset = StatusOffset + StatusSize
	DataEntrySize  = 8
	DataListSize   = MaxDataCount * DataEntrySize

	DataCountOffset = DataListOffset + DataListSize
	DataCountSize   = 2

	// PacketSize is packet_no (uint64), status (uint64),
	// data list (MaxDataCount * uint64) and data count (uint16)
	PacketSize = 8 + 8 + MaxDataCount*8 + 2
)

// Status masks over the 24 bit status value
const (
	StatusClkStateMask         uint32 = 0x1F0000
	StatusI2CStatusMask        uint32 = 0x000F00
	StatusAdcClkSelMask        uint32 = 0x000030
	StatusAsicEnableStatusMask uint32 = 0x00000F
)

// Data entry masks over the 64 bit data word
const (
	DataAdcMask           uint64 = 0xFFF0000000000000
	DataTimestampFPGAMask uint64 = 0x000FFFFFFFE00000
	DataTimestampASICMask uint64 = 0x00000000001FFE00
	DataChannelIDMask     uint64 = 0x00000000000001F0
	DataAsicIDMask        uint64 = 0x000000000000000C
	DataPileUpMask        uint64 = 0x0000000000000002
	DataOverflowMask      uint64 = 0x0000000000000001
)

// StatusFieldsMask is the union of the status sub-field masks
const StatusFieldsMask = uint64(StatusClkStateMask | StatusI2CStatusMask | StatusAdcClkSelMask | StatusAsicEnableStatusMask)

// DataCountMask selects the count bits of the trailing uint16, the low 3 bits are reserved
const DataCountMask uint16 = 0xFFF8

// Status is the state snapshot carried by each frame
type Status struct {
	// Value is the whole 24 bit status value including reserved bits 21-23
	Value            uint32 `json:"value"`
	ClkState         uint8  `json:"clk_state"`
	I2CStatus        uint8  `json:"i2c_status"`
	AdcClkSel        uint8  `json:"adc_clk_sel"`
	AsicEnableStatus uint8  `json:"asic_enable_status"`
}

// DataEntry is one measurement sample of the data list
type DataEntry struct {
	// Index is the position in the data list, used for labeling only
	Index         int    `json:"index"`
	Word          uint64 `json:"word"`
	Adc           uint16 `json:"adc"`
	TimestampFPGA uint32 `json:"timestamp_fpga"`
	// TimestampASIC is the raw value in ASIC clock units, see ScaledTimestampASIC
	TimestampASIC uint16 `json:"timestamp_asic"`
	ChannelID     uint8  `json:"channel_id"`
	AsicID        uint8  `json:"asic_id"`
	PileUp        bool   `json:"pile_up"`
	Overflow      bool   `json:"overflow"`
}

// Packet is a decoded GEMROC frame
type Packet struct {
	PacketNo  uint64      `json:"packet_no"`
	Status    Status      `json:"status"`
	Entries   []DataEntry `json:"entries"`
	DataCount uint16      `json:"data_count"`
}

func init() {
	if err := checkLayout(); err != nil {
		panic(err)
	}
}

// checkLayout verifies that the fixed frame layout accounts for every byte
// and that the field masks partition their words
func checkLayout() error {
	consumed := PacketNoSize + StatusSize + DataListSize + DataCountSize
	if consumed != PacketSize {
		return ErrInternalConsistency{What: fmt.Sprintf("fields take %d bytes, frame is %d", consumed, PacketSize)}
	}
	if DataCountOffset+DataCountSize != PacketSize {
		return ErrInternalConsistency{What: "data count is not the last field"}
	}
	if widest := bitfield.Extract(uint16(0xFFFF), DataCountMask); int(widest) < MaxDataCount {
		return ErrInternalConsistency{What: "data count field is too narrow"}
	}
	if err := checkPartition(statusFieldMasks(), StatusFieldsMask); err != nil {
		return err
	}
	return checkPartition(dataFieldMasks(), ^uint64(0))
}

func checkPartition(masks []uint64, cover uint64) error {
	var union uint64
	for i, m := range masks {
		for _, other := range masks[i+1:] {
			if m&other != 0 {
				return ErrInternalConsistency{What: fmt.Sprintf("masks 0x%x and 0x%x overlap", m, other)}
			}
		}
		union |= m
	}
	if union != cover {
		return ErrInternalConsistency{What: fmt.Sprintf("masks cover 0x%x, must cover 0x%x", union, cover)}
	}
	return nil
}

func statusFieldMasks() []uint64 {
	masks := make([]uint64, 0, len(StatusFields))
	for _, f := range StatusFields {
		masks = append(masks, f.Mask)
	}
	return masks
}

func dataFieldMasks() []uint64 {
	masks := make([]uint64, 0, len(DataFields))
	for _, f := range DataFields {
		masks = append(masks, f.Mask)
	}
	return masks
}

// DecodeStatus splits the 24 bit status value into its sub-fields.
// Reserved bits are kept in Value and otherwise ignored.
func DecodeStatus(value uint32) Status {
	value &= 0xFFFFFF
	return Status{
		Value:            value,
		ClkState:         uint8(bitfield.Extract(value, StatusClkStateMask)),
		I2CStatus:        uint8(bitfield.Extract(value, StatusI2CStatusMask)),
		AdcClkSel:        uint8(bitfield.Extract(value, StatusAdcClkSelMask)),
		AsicEnableStatus: uint8(bitfield.Extract(value, StatusAsicEnableStatusMask)),
	}
}

// Pack returns the 24 bit status value. Sub-fields take precedence over
// the same bits of Value, reserved bits are taken from Value.
func (s *Status) Pack() uint32 {
	v := s.Value & 0xFFFFFF
	v &^= uint32(StatusFieldsMask)
	v |= (uint32(s.ClkState) << bitfield.Shift(StatusClkStateMask)) & StatusClkStateMask
	v |= (uint32(s.I2CStatus) << bitfield.Shift(StatusI2CStatusMask)) & StatusI2CStatusMask
	v |= (uint32(s.AdcClkSel) << bitfield.Shift(StatusAdcClkSelMask)) & StatusAdcClkSelMask
	v |= (uint32(s.AsicEnableStatus) << bitfield.Shift(StatusAsicEnableStatusMask)) & StatusAsicEnableStatusMask
	return v
}

// DecodeDataEntry splits a data word into its seven fields
func DecodeDataEntry(index int, word uint64) DataEntry {
	return DataEntry{
		Index:         index,
		Word:          word,
		Adc:           uint16(bitfield.Extract(word, DataAdcMask)),
		TimestampFPGA: uint32(bitfield.Extract(word, DataTimestampFPGAMask)),
		TimestampASIC: uint16(bitfield.Extract(word, DataTimestampASICMask)),
		ChannelID:     uint8(bitfield.Extract(word, DataChannelIDMask)),
		AsicID:        uint8(bitfield.Extract(word, DataAsicIDMask)),
		PileUp:        bitfield.Extract(word, DataPileUpMask) == 1,
		Overflow:      bitfield.Extract(word, DataOverflowMask) == 1,
	}
}

// ScaledTimestampASIC returns the ASIC timestamp in FPGA clock units
func (e *DataEntry) ScaledTimestampASIC() uint64 {
	return ScaleTimestampASIC(uint64(e.TimestampASIC))
}

func packField(v, mask uint64) uint64 {
	return (v << bitfield.Shift(mask)) & mask
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Pack builds the data word from the entry fields. Word is not consulted.
func (e *DataEntry) Pack() uint64 {
	return packField(uint64(e.Adc), DataAdcMask) |
		packField(uint64(e.TimestampFPGA), DataTimestampFPGAMask) |
		packField(uint64(e.TimestampASIC), DataTimestampASICMask) |
		packField(uint64(e.ChannelID), DataChannelIDMask) |
		packField(uint64(e.AsicID), DataAsicIDMask) |
		packField(boolBit(e.PileUp), DataPileUpMask) |
		packField(boolBit(e.Overflow), DataOverflowMask)
}

// DataCountFromRaw derives the number of data entries from the trailing uint16
func DataCountFromRaw(raw uint16) uint16 {
	return bitfield.Extract(raw, DataCountMask)
}

// Decode decodes a whole GEMROC frame. data is not retained.
// A frame of the wrong size gives ErrNotThisProtocol, a data count larger
// than MaxDataCount gives ErrMalformedCount. No partial result is returned.
func Decode(data []byte) (*Packet, error) {
	if len(data) != PacketSize {
		log.Debug("Decode: frame length %d not equal to 8+8+%d*8+2=%d", len(data), MaxDataCount, PacketSize)
		return nil, ErrNotThisProtocol{Length: len(data)}
	}

	packetNo := binary.LittleEndian.Uint64(data[PacketNoOffset : PacketNoOffset+PacketNoSize])
	statusValue, err := bitfield.Uint(data, StatusValueOffset, StatusValueSize)
	if err != nil {
		return nil, ErrInternalConsistency{What: err.Error()}
	}
	countRaw := binary.LittleEndian.Uint16(data[DataCountOffset : DataCountOffset+DataCountSize])
	dataCount := DataCountFromRaw(countRaw)

	log.Debug("Decode: PacketNo: %d", packetNo)
	log.Debug("Decode: Status: 0x%06x", statusValue)
	log.Debug("Decode: DataCount: %d (raw 0x%04x)", dataCount, countRaw)

	if dataCount > MaxDataCount {
		log.Warning("Decode: packet %d has data count %d, max is %d", packetNo, dataCount, MaxDataCount)
		return nil, ErrMalformedCount{Raw: countRaw, Count: dataCount}
	}

	p := &Packet{
		PacketNo:  packetNo,
		Status:    DecodeStatus(uint32(statusValue)),
		Entries:   make([]DataEntry, dataCount),
		DataCount: dataCount,
	}
	for i := 0; i < int(dataCount); i++ {
		offset := DataListOffset + i*DataEntrySize
		p.Entries[i] = DecodeDataEntry(i, binary.LittleEndian.Uint64(data[offset:offset+DataEntrySize]))
	}
	if log.Level() >= log.DebugLevel && dataCount > 0 {
		last := DataListOffset + int(dataCount)*DataEntrySize
		log.Debug("Decode: data list:\n%s", hex.Dump(data[DataListOffset:last]))
	}
	return p, nil
}

// NewPacket builds a Packet with DataCount and entry indexes matching entries
func NewPacket(packetNo uint64, status Status, entries []DataEntry) *Packet {
	p := &Packet{
		PacketNo:  packetNo,
		Status:    status,
		Entries:   make([]DataEntry, len(entries)),
		DataCount: uint16(len(entries)),
	}
	for i, e := range entries {
		e.Index = i
		e.Word = e.Pack()
		p.Entries[i] = e
	}
	p.Status.Value = p.Status.Pack()
	return p
}

// Serialize writes the packet in wire format to buf which must be at least
// PacketSize bytes long. Unused data entries and reserved bits are zeroed.
func (p *Packet) Serialize(buf []byte) error {
	if len(buf) < PacketSize {
		return ErrEncode{What: fmt.Sprintf("buffer too short: %d bytes, need %d", len(buf), PacketSize)}
	}
	if len(p.Entries) > MaxDataCount {
		return ErrEncode{What: fmt.Sprintf("%d data entries, max is %d", len(p.Entries), MaxDataCount)}
	}
	if int(p.DataCount) != len(p.Entries) {
		return ErrEncode{What: fmt.Sprintf("data count %d does not match %d entries", p.DataCount, len(p.Entries))}
	}
	buf = buf[:PacketSize]
	for i := range buf {
		buf[i] = 0
	}

	binary.LittleEndian.PutUint64(buf[PacketNoOffset:PacketNoOffset+PacketNoSize], p.PacketNo)
	if err := bitfield.PutUint(buf, StatusValueOffset, StatusValueSize, uint64(p.Status.Pack())); err != nil {
		return ErrEncode{What: err.Error()}
	}
	for i := range p.Entries {
		offset := DataListOffset + i*DataEntrySize
		binary.LittleEndian.PutUint64(buf[offset:offset+DataEntrySize], p.Entries[i].Pack())
	}
	countRaw := (p.DataCount << bitfield.Shift(DataCountMask)) & DataCountMask
	binary.LittleEndian.PutUint16(buf[DataCountOffset:DataCountOffset+DataCountSize], countRaw)
	return nil
}

// Bytes returns the packet in wire format
func (p *Packet) Bytes() ([]byte, error) {
	buf := make([]byte, PacketSize)
	if err := p.Serialize(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Summary is the one line description of a packet used in packet lists
func (p *Packet) Summary() string {
	return fmt.Sprintf("no: %d, size: %d", p.PacketNo, p.DataCount)
}
