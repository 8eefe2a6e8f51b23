package lte

import (
	"fmt"
	"strings"
)

// Sentinel bit values carried through the pipeline next to ordinary 0/1 bits.
const (
	// BitNull marks filler and sub-block interleaver dummy bits; they are never transmitted.
	BitNull uint8 = 0xFF
	// BitRepeat is the "y" placeholder: after scrambling it repeats the previous bit.
	BitRepeat uint8 = 0xFE
	// BitPlaceholder is the "x" placeholder: after scrambling it becomes 1.
	BitPlaceholder uint8 = 0xFD
)

// CheckBinary returns ErrInvalidConfiguration if any element is not 0 or 1.
func CheckBinary(bits []uint8) error {
	for i, b := range bits {
		if b > 1 {
			return fmt.Errorf("%w: bit %d has value %d", ErrInvalidConfiguration, i, b)
		}
	}
	return nil
}

// ParseBits converts a string of '0'/'1' characters (whitespace ignored) into bits.
func ParseBits(s string) ([]uint8, error) {
	out := make([]uint8, 0, len(s))
	for i, r := range s {
		switch r {
		case '0':
			out = append(out, 0)
		case '1':
			out = append(out, 1)
		case ' ', '\t', '\n', '\r', '_':
		default:
			return nil, fmt.Errorf("%w: invalid bit character %q at %d", ErrInvalidConfiguration, r, i)
		}
	}
	return out, nil
}

// FormatBits renders bits as a '0'/'1' string; sentinels print as 'n', 'y' and 'x'.
func FormatBits(bits []uint8) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		switch b {
		case 0:
			sb.WriteByte('0')
		case 1:
			sb.WriteByte('1')
		case BitNull:
			sb.WriteByte('n')
		case BitRepeat:
			sb.WriteByte('y')
		case BitPlaceholder:
			sb.WriteByte('x')
		default:
			sb.WriteByte('?')
		}
	}
	return sb.String()
}
