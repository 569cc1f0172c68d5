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

// Package bitfield extracts masked sub-fields from fixed width words and
// reads little-endian unsigned integers of arbitrary byte width.
package bitfield

import (
	"fmt"
	"math/bits"
)

// Word is any unsigned integer type that a field can be packed into
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Shift returns the position of the least significant set bit of mask.
// A zero mask has no set bits and Shift returns 0 for it.
func Shift[T Word](mask T) int {
	if mask == 0 {
		return 0
	}
	return bits.TrailingZeros64(uint64(mask))
}

// Width returns the number of set bits in mask
func Width[T Word](mask T) int {
	return bits.OnesCount64(uint64(mask))
}

// Extract returns word&mask right-justified so that the least significant
// set bit of mask becomes bit 0 of the result.
func Extract[T Word](word, mask T) T {
	return (word & mask) >> Shift(mask)
}

// Uint reads size bytes starting at offset as a little-endian unsigned
// integer. size must be in 1..8 and data must hold offset+size bytes.
func Uint(data []byte, offset, size int) (uint64, error) {
	if size < 1 || size > 8 {
		return 0, fmt.Errorf("bitfield: unsupported integer size %d", size)
	}
	if offset < 0 || offset+size > len(data) {
		return 0, fmt.Errorf("bitfield: %d bytes at offset %d out of range (len %d)", size, offset, len(data))
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[offset+i])
	}
	return v, nil
}

// PutUint writes the low size bytes of v to data at offset in little-endian order
func PutUint(data []byte, offset, size int, v uint64) error {
	if size < 1 || size > 8 {
		return fmt.Errorf("bitfield: unsupported integer size %d", size)
	}
	if offset < 0 || offset+size > len(data) {
		return fmt.Errorf("bitfield: %d bytes at offset %d out of range (len %d)", size, offset, len(data))
	}
	for i := 0; i < size; i++ {
		data[offset+i] = byte(v >> (8 * i))
	}
	return nil
}
