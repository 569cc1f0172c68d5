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
	"strings"
)

const (
	// LabelLength is the size of a rendered field label including the terminator
	LabelLength = 240
	// TimestampASICScale is the ratio between the FPGA and the ASIC timestamp clocks
	TimestampASICScale = 4
)

type TransformKind uint8

const (
	// TransformIdentity renders the value as decimal
	TransformIdentity TransformKind = iota
	// TransformIdentityHex renders the value as zero padded hex
	TransformIdentityHex
	// TransformLinearScale multiplies the value by Factor before rendering it as decimal
	TransformLinearScale
	// TransformMinimalBinaryString renders the significant bits followed by 'b'
	TransformMinimalBinaryString
)

func (k TransformKind) String() string {
	switch k {
	case TransformIdentity:
		return "identity"
	case TransformIdentityHex:
		return "hex"
	case TransformLinearScale:
		return "linear-scale"
	case TransformMinimalBinaryString:
		return "minimal-binary"
	default:
		return fmt.Sprintf("TransformKind(%d)", uint8(k))
	}
}

// Transform maps an extracted field value to its presentation
type Transform struct {
	Kind TransformKind
	// Factor is used by TransformLinearScale
	Factor uint64
	// Digits is the number of hex digits used by TransformIdentityHex
	Digits int
}

var (
	Identity            = Transform{Kind: TransformIdentity}
	MinimalBinary       = Transform{Kind: TransformMinimalBinaryString}
	TimestampASICScaled = Transform{Kind: TransformLinearScale, Factor: TimestampASICScale}
)

func Hex(digits int) Transform {
	return Transform{Kind: TransformIdentityHex, Digits: digits}
}

// Value returns the numeric presentation value
func (t Transform) Value(v uint64) uint64 {
	if t.Kind == TransformLinearScale {
		return v * t.Factor
	}
	return v
}

// Apply renders v according to the transform kind
func (t Transform) Apply(v uint64) string {
	switch t.Kind {
	case TransformIdentityHex:
		return fmt.Sprintf("0x%0*x", t.Digits, v)
	case TransformLinearScale:
		return fmt.Sprintf("%d", t.Value(v))
	case TransformMinimalBinaryString:
		return MinimalBinaryString(v, LabelLength)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// ScaleTimestampASIC converts a raw ASIC timestamp to FPGA clock units
func ScaleTimestampASIC(raw uint64) uint64 {
	return TimestampASICScaled.Value(raw)
}

// MinimalBinaryString renders the bits of v starting from the highest set
// bit (a single digit for zero) followed by the 'b' marker. maxLen is the
// size of the destination label including its terminator: at most maxLen-1
// characters are produced, digits first, and the marker is dropped when it
// does not fit.
func MinimalBinaryString(v uint64, maxLen int) string {
	if maxLen < 1 {
		return ""
	}
	bitsToPrint := 64
	for ; bitsToPrint > 1; bitsToPrint-- {
		if v&(uint64(1)<<(bitsToPrint-1)) != 0 {
			break
		}
	}

	var sb strings.Builder
	printed := 0
	for ; printed < bitsToPrint && printed < maxLen-1; printed++ {
		if v&(uint64(1)<<(bitsToPrint-printed-1)) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	if printed < maxLen-1 {
		sb.WriteByte('b')
	}
	return sb.String()
}

// BitPattern renders a width bit word the way packet analyzers show masked
// fields: bits outside mask are dots, nibbles are separated by spaces.
func BitPattern(word, mask uint64, width int) string {
	var sb strings.Builder
	for i := width - 1; i >= 0; i-- {
		bit := uint64(1) << i
		switch {
		case mask&bit == 0:
			sb.WriteByte('.')
		case word&bit != 0:
			sb.WriteByte('1')
		default:
			sb.WriteByte('0')
		}
		if i > 0 && i%4 == 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
