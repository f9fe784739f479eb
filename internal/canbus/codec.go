// Package canbus publishes loop outputs as CAN frames.
//
// Each channel's output travels in its own classic 8-byte frame with ID
// BaseID + channel:
//
//	bits  0..7   output domain
//	bits  8..39  value, IEEE-754 float32
//	bits 40..47  flags (bit 0: value valid)
//	bits 48..63  sequence, low 16 bits of the loop cycle
package canbus

import (
	"errors"
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/san-kum/pidloop/internal/joints"
)

// DefaultBaseID is the first frame ID used for output channels.
const DefaultBaseID = 0x200

const (
	frameLength = 8
	flagValid   = 1
)

var ErrUnexpectedFrame = errors.New("canbus: unexpected frame")

// Codec maps output channels to frame IDs.
type Codec struct {
	BaseID   uint32
	Channels int
}

func NewCodec(baseID uint32, channels int) Codec {
	return Codec{BaseID: baseID, Channels: channels}
}

// Encode builds the frame for channel i.
func (c Codec) Encode(i int, out joints.Output, cycle uint64) can.Frame {
	f := can.Frame{ID: c.BaseID + uint32(i), Length: frameLength}

	var flags uint64
	value := float32(0)
	if out.Domain.Valid() && joints.IsKnown(out.Value) {
		flags |= flagValid
		value = float32(out.Value)
	}

	f.Data.SetUnsignedBitsLittleEndian(0, 8, uint64(out.Domain))
	f.Data.SetUnsignedBitsLittleEndian(8, 32, uint64(math.Float32bits(value)))
	f.Data.SetUnsignedBitsLittleEndian(40, 8, flags)
	f.Data.SetUnsignedBitsLittleEndian(48, 16, cycle&0xffff)
	return f
}

// EncodeSample builds one frame per channel of s.
func (c Codec) EncodeSample(s joints.OutputSample, cycle uint64) []can.Frame {
	frames := make([]can.Frame, len(s.Channels))
	for i, out := range s.Channels {
		frames[i] = c.Encode(i, out, cycle)
	}
	return frames
}

// Decode returns the channel, output and sequence carried by f. An invalid
// value decodes as joints.Cleared.
func (c Codec) Decode(f can.Frame) (int, joints.Output, uint16, error) {
	if f.IsRemote || f.IsExtended || f.Length != frameLength || f.ID < c.BaseID {
		return 0, joints.Output{}, 0, fmt.Errorf("%w: id 0x%X", ErrUnexpectedFrame, f.ID)
	}
	ch := int(f.ID - c.BaseID)
	if c.Channels > 0 && ch >= c.Channels {
		return 0, joints.Output{}, 0, fmt.Errorf("%w: id 0x%X beyond %d channels", ErrUnexpectedFrame, f.ID, c.Channels)
	}

	seq := uint16(f.Data.UnsignedBitsLittleEndian(48, 16))
	if f.Data.UnsignedBitsLittleEndian(40, 8)&flagValid == 0 {
		return ch, joints.Cleared(), seq, nil
	}

	d := joints.Domain(f.Data.UnsignedBitsLittleEndian(0, 8))
	if !d.Valid() {
		return 0, joints.Output{}, 0, fmt.Errorf("%w: domain %d", ErrUnexpectedFrame, int(d))
	}
	v := math.Float32frombits(uint32(f.Data.UnsignedBitsLittleEndian(8, 32)))
	return ch, joints.Output{Domain: d, Value: float64(v)}, seq, nil
}
