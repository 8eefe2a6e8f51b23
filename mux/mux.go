// Package mux multiplexes coded data with uplink control information and applies the
// PUSCH channel interleaver, TS 36.212 5.2.2.7 and 5.2.2.8.
//
// The interleaver matrix has one column per PUSCH data symbol and one row per
// allocated subcarrier; each cell holds a Qm-bit vector, so a cell is exactly one
// resource element after modulation. RI is written first into its reserved columns,
// CQI and data fill the remaining cells row by row, and ACK finally punctures cells in
// the columns adjacent to the reference symbols.
package mux

import (
	"fmt"

	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/uci"
)

// Column sets for RI and ACK, TS 36.212 Tables 5.2.2.8-1 and 5.2.2.8-2.
var (
	riColumns = map[lte.CyclicPrefix][4]int{
		lte.NormalCP:   {1, 4, 7, 10},
		lte.ExtendedCP: {0, 3, 5, 8},
	}
	ackColumns = map[lte.CyclicPrefix][4]int{
		lte.NormalCP:   {2, 3, 8, 9},
		lte.ExtendedCP: {1, 2, 6, 7},
	}
)

// Layout is the shape of the interleaver matrix for one subframe.
type Layout struct {
	Modulation lte.Modulation
	// Subcarriers is M_sc of the allocation, the number of matrix rows.
	Subcarriers int
	CP          lte.CyclicPrefix
}

// Rows is R'_mux.
func (l Layout) Rows() int { return l.Subcarriers }

// Columns is C_mux, the number of PUSCH data symbols.
func (l Layout) Columns() int { return l.CP.DataSymbols() }

// NofRE is the number of matrix cells.
func (l Layout) NofRE() int { return l.Rows() * l.Columns() }

// NofBits is the interleaver output length.
func (l Layout) NofBits() int { return l.NofRE() * l.Modulation.BitsPerSymbol() }

func (l Layout) validate() error {
	if !l.Modulation.Valid() {
		return fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, l.Modulation)
	}
	if _, ok := riColumns[l.CP]; !ok {
		return fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, l.CP)
	}
	if l.Subcarriers <= 0 {
		return fmt.Errorf("%w: empty layout", lte.ErrInvalidConfiguration)
	}
	return nil
}

// DataBits returns G, the number of rate-matched data bits the layout leaves after
// CQI and RI. ACK is not subtracted: it punctures data.
func DataBits(l Layout, ctrl *uci.Result) (int, error) {
	if err := l.validate(); err != nil {
		return 0, err
	}
	if err := checkControl(l, ctrl); err != nil {
		return 0, err
	}
	re := l.NofRE()
	if ctrl != nil {
		re -= ctrl.CQI.NofRE + ctrl.RI.NofRE
	}
	return re * l.Modulation.BitsPerSymbol(), nil
}

func checkControl(l Layout, ctrl *uci.Result) error {
	if ctrl == nil {
		return nil
	}
	limit := 4 * l.Rows()
	if ctrl.RI.NofRE > limit {
		return fmt.Errorf("%w: %d ri resource elements, %d reserved", lte.ErrControlOverflow, ctrl.RI.NofRE, limit)
	}
	if ctrl.ACK.NofRE > limit {
		return fmt.Errorf("%w: %d ack resource elements, %d reserved", lte.ErrControlOverflow, ctrl.ACK.NofRE, limit)
	}
	if n := ctrl.CQI.NofRE + ctrl.RI.NofRE; n > l.NofRE() {
		return fmt.Errorf("%w: cqi and ri need %d resource elements, %d available", lte.ErrControlOverflow, n, l.NofRE())
	}
	qm := l.Modulation.BitsPerSymbol()
	for _, f := range []struct {
		name string
		enc  uci.Encoded
	}{{"cqi", ctrl.CQI}, {"ri", ctrl.RI}, {"ack", ctrl.ACK}} {
		if len(f.enc.Bits) != f.enc.NofRE*qm {
			return fmt.Errorf("%w: %s carries %d bits for %d resource elements", lte.ErrInvalidBitLength, f.name, len(f.enc.Bits), f.enc.NofRE)
		}
	}
	return nil
}

// Multiplex interleaves data and control into the NofBits-long sequence handed to the
// scrambler. data must hold exactly DataBits(l, ctrl) bits. ctrl may be nil.
func Multiplex(data []uint8, ctrl *uci.Result, l Layout) ([]uint8, error) {
	g, err := DataBits(l, ctrl)
	if err != nil {
		return nil, err
	}
	if len(data) != g {
		return nil, fmt.Errorf("%w: %d data bits, layout needs %d", lte.ErrInvalidBitLength, len(data), g)
	}
	if ctrl == nil {
		ctrl = &uci.Result{}
	}
	qm := l.Modulation.BitsPerSymbol()
	rows, cols := l.Rows(), l.Columns()

	// cell index r*cols+c -> Qm-bit vector
	y := make([]uint8, l.NofBits())
	occupied := make([]bool, rows*cols)

	place(y, occupied, ctrl.RI.Bits, ctrl.RI.NofRE, riColumns[l.CP], rows, cols, qm)

	// CQI vectors precede data vectors.
	src, k := ctrl.CQI.Bits, 0
	for cell := range occupied {
		if occupied[cell] {
			continue
		}
		if k == len(src) {
			src, k = data, 0
		}
		copy(y[cell*qm:(cell+1)*qm], src[k:k+qm])
		k += qm
	}

	place(y, nil, ctrl.ACK.Bits, ctrl.ACK.NofRE, ackColumns[l.CP], rows, cols, qm)

	out := make([]uint8, len(y))
	n := 0
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			cell := r*cols + c
			n += copy(out[n:], y[cell*qm:(cell+1)*qm])
		}
	}
	return out, nil
}

// place writes count vectors from the bottom row up, cycling through the column set in
// the order 0, 3, 2, 1.
func place(y []uint8, occupied []bool, bits []uint8, count int, set [4]int, rows, cols, qm int) {
	r, j := rows-1, 0
	for i := 0; i < count; i++ {
		cell := r*cols + set[j]
		copy(y[cell*qm:(cell+1)*qm], bits[i*qm:(i+1)*qm])
		if occupied != nil {
			occupied[cell] = true
		}
		r = rows - 1 - (i+1)/4
		j = (j + 3) % 4
	}
}

// ControlPositions returns the output bit offsets of the first bit of every RI and ACK
// vector, for verification tooling.
func ControlPositions(ctrl *uci.Result, l Layout) (ri, ack []int) {
	if ctrl == nil {
		return nil, nil
	}
	qm := l.Modulation.BitsPerSymbol()
	pos := func(count int, set [4]int) []int {
		out := make([]int, 0, count)
		r, j := l.Rows()-1, 0
		for i := 0; i < count; i++ {
			out = append(out, (set[j]*l.Rows()+r)*qm)
			r = l.Rows() - 1 - (i+1)/4
			j = (j + 3) % 4
		}
		return out
	}
	return pos(ctrl.RI.NofRE, riColumns[l.CP]), pos(ctrl.ACK.NofRE, ackColumns[l.CP])
}
