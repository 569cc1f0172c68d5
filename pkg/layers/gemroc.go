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
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const (
	// GemrocLayerNum identifies the layer
	GemrocLayerNum = 2001
	// GemrocPort is the UDP port GEMROC boards send their frames to
	GemrocPort = 48350
)

func init() {
	layers.RegisterUDPPortLayerType(layers.UDPPort(GemrocPort), GemrocLayerType)
}

// GemrocLayer is a GEMROC frame carried as a UDP payload
type GemrocLayer struct {
	layers.BaseLayer
	Packet
}

var GemrocLayerType = gopacket.RegisterLayerType(GemrocLayerNum,
	gopacket.LayerTypeMetadata{Name: "GemrocLayerType", Decoder: gopacket.DecodeFunc(decodeGemrocLayer)})

// LayerType returns the type of the GEMROC layer in the layer catalog
func (g *GemrocLayer) LayerType() gopacket.LayerType {
	return GemrocLayerType
}

// CanDecode returns the set of layer types this layer can decode
func (g *GemrocLayer) CanDecode() gopacket.LayerClass {
	return GemrocLayerType
}

// NextLayerType returns LayerTypeZero, a GEMROC frame carries nothing else
func (g *GemrocLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// DecodeFromBytes attempts to decode the byte slice as a GEMROC frame
// Frames are fixed size so there is nothing to report as truncated:
// any other length is ErrNotThisProtocol.
func (g *GemrocLayer) DecodeFromBytes(data []byte, _ gopacket.DecodeFeedback) error {
	p, err := Decode(data)
	if err != nil {
		return err
	}
	g.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}
	g.Packet = *p
	return nil
}

// SerializeTo serializes the layer into bytes and writes the bytes to the SerializeBuffer
func (g *GemrocLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		g.DataCount = uint16(len(g.Entries))
	}
	bytes, err := b.PrependBytes(PacketSize)
	if err != nil {
		return err
	}
	return g.Packet.Serialize(bytes)
}

// decodeGemrocLayer hands frames of the wrong size over to the payload
// decoder so they show up as unparsed bytes instead of decode failures
func decodeGemrocLayer(data []byte, p gopacket.PacketBuilder) error {
	g := &GemrocLayer{}
	err := g.DecodeFromBytes(data, p)
	if err != nil {
		var notThis ErrNotThisProtocol
		if errors.As(err, &notThis) {
			return p.NextDecoder(gopacket.LayerTypePayload)
		}
		log.Debug("Error while decoding gemroc layer: %s", err)
		return err
	}
	p.AddLayer(g)
	return nil
}
