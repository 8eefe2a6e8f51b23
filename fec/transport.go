package fec

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// CodedBlock is one turbo-encoded code block: three streams of K+4 bits.
type CodedBlock struct {
	K int
	D [3][]uint8
}

// CodedTransportBlock is the output of the transport block coder.
type CodedTransportBlock struct {
	Segmentation Segmentation
	Blocks       []CodedBlock
}

// Len returns the total number of coded bits, dummy filler positions included.
func (c *CodedTransportBlock) Len() int {
	n := 0
	for _, b := range c.Blocks {
		n += 3 * len(b.D[0])
	}
	return n
}

// Bits concatenates d0|d1|d2 of every block in block order.
func (c *CodedTransportBlock) Bits() []uint8 {
	out := make([]uint8, 0, c.Len())
	for _, b := range c.Blocks {
		for _, s := range b.D {
			out = append(out, s...)
		}
	}
	return out
}

// EncodeTransportBlock attaches the transport block CRC, segments into code blocks and
// turbo encodes each of them. It is a pure function of its inputs.
func EncodeTransportBlock(bits []uint8, tbs int) (*CodedTransportBlock, error) {
	if len(bits) != tbs {
		return nil, fmt.Errorf("%w: %d payload bits for tbs %d", lte.ErrInvalidConfiguration, len(bits), tbs)
	}
	if err := lte.CheckBinary(bits); err != nil {
		return nil, err
	}
	seg, err := NewSegmentation(tbs)
	if err != nil {
		return nil, err
	}
	blocks, err := seg.Split(CRC24A.Append(bits))
	if err != nil {
		return nil, err
	}
	out := &CodedTransportBlock{Segmentation: seg, Blocks: make([]CodedBlock, len(blocks))}
	for r, blk := range blocks {
		d, err := TurboEncode(blk)
		if err != nil {
			return nil, fmt.Errorf("code block %d: %w", r, err)
		}
		out.Blocks[r] = CodedBlock{K: len(blk), D: d}
	}
	return out, nil
}
