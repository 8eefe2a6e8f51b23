package lte

import "fmt"

// Allocation is a contiguous uplink resource-block assignment for one subframe. FirstPRB
// holds n_prb for slot 0 and slot 1 so intra-subframe hopping can be expressed.
type Allocation struct {
	NofPRB   int
	FirstPRB [SlotsPerSubframe]int
}

// ContiguousAllocation allocates nofPRB blocks starting at first in both slots.
func ContiguousAllocation(first, nofPRB int) Allocation {
	return Allocation{NofPRB: nofPRB, FirstPRB: [SlotsPerSubframe]int{first, first}}
}

// AllocationFromPRBSet builds an allocation from a harness PRB set (the first entry
// gives n_prb, the length gives L_prb). The set must be contiguous and ascending.
func AllocationFromPRBSet(set []int) (Allocation, error) {
	if len(set) == 0 {
		return Allocation{}, fmt.Errorf("%w: empty prb set", ErrInvalidConfiguration)
	}
	for i := 1; i < len(set); i++ {
		if set[i] != set[i-1]+1 {
			return Allocation{}, fmt.Errorf("%w: prb set not contiguous at index %d", ErrInvalidConfiguration, i)
		}
	}
	return ContiguousAllocation(set[0], len(set)), nil
}

// Subcarriers is M_sc, the PUSCH bandwidth in subcarriers.
func (a Allocation) Subcarriers() int { return a.NofPRB * SubcarriersPerPRB }

// Fits checks that the allocation lies inside the cell bandwidth in both slots.
func (a Allocation) Fits(c Cell) error {
	if a.NofPRB <= 0 {
		return fmt.Errorf("%w: %d prb allocated", ErrAllocationMismatch, a.NofPRB)
	}
	for s, first := range a.FirstPRB {
		if first < 0 || first+a.NofPRB > c.NofPRB {
			return fmt.Errorf("%w: slot %d prb [%d,%d) outside cell of %d prb",
				ErrAllocationMismatch, s, first, first+a.NofPRB, c.NofPRB)
		}
	}
	return nil
}

// ValidDFTSize reports whether m = 2^a * 3^b * 5^c, the sizes the transform precoder accepts.
func ValidDFTSize(m int) bool {
	if m <= 0 {
		return false
	}
	for _, f := range []int{2, 3, 5} {
		for m%f == 0 {
			m /= f
		}
	}
	return m == 1
}
