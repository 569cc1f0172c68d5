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
	"fmt"
	"io"
	"strings"

	"jinr.ru/greenlab/go-gemroc/pkg/bitfield"
)

const (
	ProtocolName      = "GEMROC Udp Data"
	ProtocolShortName = "GEMROC Udp"
	FilterName        = "gemroc_udp"
)

// FieldDef describes one masked sub-field of a status or data word
type FieldDef struct {
	Abbrev string
	Label  string
	Mask   uint64
	Transform
}

var StatusFields = []FieldDef{
	{Abbrev: FilterName + ".status.clk_st", Label: "Clk state", Mask: uint64(StatusClkStateMask), Transform: MinimalBinary},
	{Abbrev: FilterName + ".status.i2c_status", Label: "I2C status", Mask: uint64(StatusI2CStatusMask), Transform: Hex(1)},
	{Abbrev: FilterName + ".status.adc_clk_sel", Label: "ADC clk sel", Mask: uint64(StatusAdcClkSelMask), Transform: Hex(1)},
	{Abbrev: FilterName + ".status.asic_enable_status", Label: "ASIC enable status", Mask: uint64(StatusAsicEnableStatusMask), Transform: Hex(1)},
}

var DataFields = []FieldDef{
	{Abbrev: FilterName + ".data.adc", Label: "ADC", Mask: DataAdcMask, Transform: Identity},
	{Abbrev: FilterName + ".data.ts_fpga", Label: "TimeStamp FPGA", Mask: DataTimestampFPGAMask, Transform: Identity},
	{Abbrev: FilterName + ".data.ts_asic", Label: "TimeStamp ASIC", Mask: DataTimestampASICMask, Transform: TimestampASICScaled},
	{Abbrev: FilterName + ".data.channel_id", Label: "Channel id", Mask: DataChannelIDMask, Transform: Identity},
	{Abbrev: FilterName + ".data.asic_id", Label: "ASIC id", Mask: DataAsicIDMask, Transform: Identity},
	{Abbrev: FilterName + ".data.pile_up", Label: "PileUp", Mask: DataPileUpMask, Transform: Identity},
	{Abbrev: FilterName + ".data.overflow", Label: "OverFlow", Mask: DataOverflowMask, Transform: Identity},
}

// Field is a node of the decoded field tree. Offset and Length locate the
// field in the frame. Masked fields also carry the containing word.
type Field struct {
	Abbrev   string   `json:"abbrev,omitempty"`
	Label    string   `json:"label"`
	Display  string   `json:"display,omitempty"`
	Value    uint64   `json:"value"`
	Offset   int      `json:"offset"`
	Length   int      `json:"length"`
	Mask     uint64   `json:"mask,omitempty"`
	Word     uint64   `json:"-"`
	Bits     int      `json:"-"`
	Children []*Field `json:"children,omitempty"`
}

func maskedFields(defs []FieldDef, word uint64, bits, offset, length int) []*Field {
	fields := make([]*Field, 0, len(defs))
	for _, def := range defs {
		v := bitfield.Extract(word, def.Mask)
		fields = append(fields, &Field{
			Abbrev:  def.Abbrev,
			Label:   def.Label,
			Display: def.Apply(v),
			Value:   def.Value(v),
			Offset:  offset,
			Length:  length,
			Mask:    def.Mask,
			Word:    word,
			Bits:    bits,
		})
	}
	return fields
}

// Tree builds the field tree of the packet
func (p *Packet) Tree() *Field {
	status := &Field{
		Abbrev:   FilterName + ".status",
		Label:    "Status",
		Display:  Hex(6).Apply(uint64(p.Status.Value)),
		Value:    uint64(p.Status.Value),
		Offset:   StatusValueOffset,
		Length:   StatusValueSize,
		Children: maskedFields(StatusFields, uint64(p.Status.Value), StatusValueSize*8, StatusValueOffset, StatusValueSize),
	}

	dataList := &Field{
		Abbrev:   FilterName + ".data_list",
		Label:    "Data list",
		Offset:   DataListOffset,
		Length:   DataListSize,
		Children: make([]*Field, 0, len(p.Entries)),
	}
	for i := range p.Entries {
		e := &p.Entries[i]
		offset := DataListOffset + e.Index*DataEntrySize
		dataList.Children = append(dataList.Children, &Field{
			Label:    fmt.Sprintf("[%d]", e.Index),
			Display:  Hex(16).Apply(e.Word),
			Value:    e.Word,
			Offset:   offset,
			Length:   DataEntrySize,
			Children: maskedFields(DataFields, e.Word, DataEntrySize*8, offset, DataEntrySize),
		})
	}

	return &Field{
		Abbrev: FilterName,
		Label:  ProtocolName,
		Offset: 0,
		Length: PacketSize,
		Children: []*Field{
			{
				Abbrev:  FilterName + ".pack_no",
				Label:   "Packet no",
				Display: Identity.Apply(p.PacketNo),
				Value:   p.PacketNo,
				Offset:  PacketNoOffset,
				Length:  PacketNoSize,
			},
			status,
			dataList,
			{
				Abbrev:  FilterName + ".data_cnt",
				Label:   "Data count",
				Display: Identity.Apply(uint64(p.DataCount)),
				Value:   uint64(p.DataCount),
				Offset:  DataCountOffset,
				Length:  DataCountSize,
				Mask:    uint64(DataCountMask),
				Word:    uint64(p.DataCount) << bitfield.Shift(DataCountMask),
				Bits:    DataCountSize * 8,
			},
		},
	}
}

// Find returns the first field with the given filter name, depth first
func (f *Field) Find(abbrev string) *Field {
	if f.Abbrev == abbrev {
		return f
	}
	for _, c := range f.Children {
		if found := c.Find(abbrev); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every field with the given filter name, depth first
func (f *Field) FindAll(abbrev string) []*Field {
	var found []*Field
	f.walk(func(field *Field) {
		if field.Abbrev == abbrev {
			found = append(found, field)
		}
	})
	return found
}

func (f *Field) walk(fn func(*Field)) {
	fn(f)
	for _, c := range f.Children {
		c.walk(fn)
	}
}

func (f *Field) line() string {
	var sb strings.Builder
	if f.Mask != 0 && f.Bits > 0 {
		sb.WriteString(BitPattern(f.Word, f.Mask, f.Bits))
		sb.WriteString(" = ")
	}
	sb.WriteString(f.Label)
	if f.Display != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Display)
	}
	return sb.String()
}

// Format writes an indented text rendering of the tree to w
func (f *Field) Format(w io.Writer) error {
	return f.format(w, 0)
}

func (f *Field) format(w io.Writer, depth int) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("    ", depth), f.line()); err != nil {
		return err
	}
	for _, c := range f.Children {
		if err := c.format(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) String() string {
	var sb strings.Builder
	_ = f.Format(&sb)
	return sb.String()
}
