package lte

import (
	"fmt"
	"strings"
)

// Frame numerology.
const (
	SubcarriersPerPRB = 12
	SlotsPerSubframe  = 2
	SubframesPerFrame = 10
	MinPRB            = 6
	MaxPRB            = 110
	MaxCellID         = 503
)

// CyclicPrefix selects normal (7 symbols/slot) or extended (6 symbols/slot) framing.
type CyclicPrefix int

const (
	NormalCP CyclicPrefix = iota
	ExtendedCP
)

func (cp CyclicPrefix) String() string {
	switch cp {
	case NormalCP:
		return "normal"
	case ExtendedCP:
		return "extended"
	default:
		return fmt.Sprintf("CyclicPrefix(%d)", int(cp))
	}
}

// ParseCyclicPrefix accepts "normal"/"extended" (case-insensitive). Empty means normal.
func ParseCyclicPrefix(s string) (CyclicPrefix, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "norm":
		return NormalCP, nil
	case "extended", "ext":
		return ExtendedCP, nil
	}
	return 0, fmt.Errorf("%w: unknown cyclic prefix %q", ErrInvalidConfiguration, s)
}

// SymbolsPerSlot returns the number of SC-FDMA symbols in one slot.
func (cp CyclicPrefix) SymbolsPerSlot() int {
	if cp == ExtendedCP {
		return 6
	}
	return 7
}

// ReferenceSymbol is the in-slot index of the demodulation reference symbol.
func (cp CyclicPrefix) ReferenceSymbol() int {
	if cp == ExtendedCP {
		return 2
	}
	return 3
}

// DataSymbols is the number of PUSCH data symbols in a subframe (reference symbols removed).
func (cp CyclicPrefix) DataSymbols() int {
	return SlotsPerSubframe * (cp.SymbolsPerSlot() - 1)
}

// Cell is the immutable cell-level configuration of an encoder.
type Cell struct {
	ID     uint32
	NofPRB int
	CP     CyclicPrefix
	Ports  int
}

// Validate checks the ranges supported by the encoder.
func (c Cell) Validate() error {
	if c.ID > MaxCellID {
		return fmt.Errorf("%w: cell id %d > %d", ErrInvalidConfiguration, c.ID, MaxCellID)
	}
	if c.NofPRB < MinPRB || c.NofPRB > MaxPRB {
		return fmt.Errorf("%w: nof_prb %d outside [%d,%d]", ErrInvalidConfiguration, c.NofPRB, MinPRB, MaxPRB)
	}
	if c.CP != NormalCP && c.CP != ExtendedCP {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, c.CP)
	}
	if c.Ports != 1 {
		return fmt.Errorf("%w: %d ports, only single-antenna transmission is supported", ErrInvalidConfiguration, c.Ports)
	}
	return nil
}

// Subcarriers is the number of subcarriers across the cell bandwidth.
func (c Cell) Subcarriers() int { return c.NofPRB * SubcarriersPerPRB }

// SymbolsPerSubframe is the number of SC-FDMA symbols in a subframe.
func (c Cell) SymbolsPerSubframe() int { return SlotsPerSubframe * c.CP.SymbolsPerSlot() }

// NofRE is the resource-element count of one subframe grid.
func (c Cell) NofRE() int {
	return c.NofPRB * SubcarriersPerPRB * c.CP.SymbolsPerSlot() * SlotsPerSubframe
}

// SymbolSize returns the IFFT size used for nofPRB resource blocks.
func SymbolSize(nofPRB int) int {
	switch {
	case nofPRB <= 6:
		return 128
	case nofPRB <= 15:
		return 256
	case nofPRB <= 25:
		return 512
	case nofPRB <= 50:
		return 1024
	case nofPRB <= 75:
		return 1536
	default:
		return 2048
	}
}

// SubcarrierSpacing is the uplink subcarrier spacing in Hz.
const SubcarrierSpacing = 15000

// SampleRate is the baseband sample rate in Hz for nofPRB resource blocks.
func SampleRate(nofPRB int) int { return SymbolSize(nofPRB) * SubcarrierSpacing }

// CPLen returns the cyclic prefix length in samples of symbol l within a slot.
func CPLen(l, symbolSize int, cp CyclicPrefix) int {
	if cp == ExtendedCP {
		return 512 * symbolSize / 2048
	}
	if l == 0 {
		return 160 * symbolSize / 2048
	}
	return 144 * symbolSize / 2048
}

// SlotLen is the number of time-domain samples in one slot.
func SlotLen(symbolSize int, cp CyclicPrefix) int {
	n := 0
	for l := 0; l < cp.SymbolsPerSlot(); l++ {
		n += CPLen(l, symbolSize, cp) + symbolSize
	}
	return n
}

// SubframeLen is the number of time-domain samples in one subframe.
func SubframeLen(nofPRB int, cp CyclicPrefix) int {
	return SlotsPerSubframe * SlotLen(SymbolSize(nofPRB), cp)
}
