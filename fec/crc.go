package fec

import "github.com/observe-l/ulsch/lte"

// CRC is a bit-serial cyclic redundancy check over 0/1 bit slices. Parity bits are
// appended most significant first, so a codeword with its parity checks to zero.
type CRC struct {
	poly  uint32 // generator without the x^order term
	order uint
	mask  uint32
}

// Generator polynomials from TS 36.212 5.1.1.
var (
	CRC24A = newCRC(0x1864CFB, 24)
	CRC24B = newCRC(0x1800063, 24)
	CRC16  = newCRC(0x11021, 16)
	CRC8   = newCRC(0x19B, 8)
)

func newCRC(poly uint32, order uint) *CRC {
	mask := uint32(1)<<order - 1
	return &CRC{poly: poly & mask, order: order, mask: mask}
}

// Order returns the number of parity bits.
func (c *CRC) Order() int { return int(c.order) }

// Checksum returns the remainder of bits(x)*x^order modulo the generator. Filler bits
// (lte.BitNull) count as zero.
func (c *CRC) Checksum(bits []uint8) uint32 {
	var reg uint32
	top := c.order - 1
	for _, b := range bits {
		in := uint32(b & 1)
		if b == lte.BitNull {
			in = 0
		}
		msb := (reg >> top) & 1
		reg = (reg << 1) & c.mask
		if msb^in == 1 {
			reg ^= c.poly
		}
	}
	return reg
}

// Append returns bits with the parity bits appended. The input is not modified.
func (c *CRC) Append(bits []uint8) []uint8 {
	out := make([]uint8, len(bits), len(bits)+int(c.order))
	copy(out, bits)
	return c.AppendTo(out)
}

// AppendTo appends the parity of bits to bits in place.
func (c *CRC) AppendTo(bits []uint8) []uint8 {
	sum := c.Checksum(bits)
	for i := int(c.order) - 1; i >= 0; i-- {
		bits = append(bits, uint8((sum>>uint(i))&1))
	}
	return bits
}

// Check reports whether a codeword (data followed by parity) has a zero remainder.
func (c *CRC) Check(codeword []uint8) bool {
	return c.Checksum(codeword) == 0
}
