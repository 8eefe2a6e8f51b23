// Package grid holds the uplink resource grid of one subframe and maps PUSCH symbols
// onto it, TS 36.211 5.3.3 and 5.3.4.
package grid

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
)

// Grid is a subframe of resource elements stored symbol by symbol, each symbol holding
// the cell's subcarriers in increasing frequency order.
type Grid struct {
	cell lte.Cell
	re   []complex64
}

// New allocates an empty grid for cell c.
func New(c lte.Cell) (*Grid, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return Wrap(c, make([]complex64, c.SymbolsPerSubframe()*c.Subcarriers()))
}

// Wrap uses re as the grid storage. Its length must equal the cell's resource-element
// count.
func Wrap(c lte.Cell, re []complex64) (*Grid, error) {
	if len(re) != c.NofRE() {
		return nil, fmt.Errorf("%w: grid has %d elements, cell needs %d", lte.ErrInvalidConfiguration, len(re), c.NofRE())
	}
	return &Grid{cell: c, re: re}, nil
}

func (g *Grid) Cell() lte.Cell { return g.cell }

// NofRE is the number of resource elements.
func (g *Grid) NofRE() int { return len(g.re) }

// Elements returns the backing storage.
func (g *Grid) Elements() []complex64 { return g.re }

// Symbol returns the subcarriers of subframe symbol l (0..2*SymbolsPerSlot-1).
func (g *Grid) Symbol(l int) []complex64 {
	n := g.cell.Subcarriers()
	return g.re[l*n : (l+1)*n]
}

// Reset zeroes every element.
func (g *Grid) Reset() {
	for i := range g.re {
		g.re[i] = 0
	}
}

// dataSymbols lists the subframe symbol indices that carry PUSCH, with the slot each
// belongs to.
func dataSymbols(cp lte.CyclicPrefix) (idx, slot []int) {
	n := cp.SymbolsPerSlot()
	for s := 0; s < lte.SlotsPerSubframe; s++ {
		for l := 0; l < n; l++ {
			if l == cp.ReferenceSymbol() {
				continue
			}
			idx = append(idx, s*n+l)
			slot = append(slot, s)
		}
	}
	return idx, slot
}

func (g *Grid) check(nsym int, a lte.Allocation, subframe int) error {
	if subframe < 0 || subframe >= lte.SubframesPerFrame {
		return fmt.Errorf("%w: subframe %d", lte.ErrInvalidConfiguration, subframe)
	}
	if err := a.Fits(g.cell); err != nil {
		return err
	}
	if want := a.Subcarriers() * g.cell.CP.DataSymbols(); nsym != want {
		return fmt.Errorf("%w: %d symbols for an allocation of %d", lte.ErrAllocationMismatch, nsym, want)
	}
	return nil
}

// Map writes symbols into the allocation: M_sc symbols per data symbol starting at
// subcarrier 12*n_prb of the slot. Reference symbols are left untouched.
func Map(g *Grid, symbols []complex64, a lte.Allocation, subframe int) error {
	if err := g.check(len(symbols), a, subframe); err != nil {
		return err
	}
	msc := a.Subcarriers()
	idx, slot := dataSymbols(g.cell.CP)
	for i, l := range idx {
		k0 := a.FirstPRB[slot[i]] * lte.SubcarriersPerPRB
		copy(g.Symbol(l)[k0:k0+msc], symbols[i*msc:(i+1)*msc])
	}
	return nil
}

// Extract reads the allocation back in the order Map wrote it.
func Extract(g *Grid, a lte.Allocation, subframe int) ([]complex64, error) {
	msc := a.Subcarriers()
	out := make([]complex64, msc*g.cell.CP.DataSymbols())
	if err := g.check(len(out), a, subframe); err != nil {
		return nil, err
	}
	idx, slot := dataSymbols(g.cell.CP)
	for i, l := range idx {
		k0 := a.FirstPRB[slot[i]] * lte.SubcarriersPerPRB
		copy(out[i*msc:(i+1)*msc], g.Symbol(l)[k0:k0+msc])
	}
	return out, nil
}
