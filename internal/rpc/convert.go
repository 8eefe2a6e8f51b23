package rpc

import (
	"fmt"

	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/internal/vecwire"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/pusch"
	"github.com/observe-l/ulsch/uci"
)

// NewEncodeRequest builds the wire form of req for process id on cell c.
func NewEncodeRequest(id uint32, c lte.Cell, rnti uint16, req pusch.Request) *vecwire.EncodeRequest {
	cfg := req.Config
	m := &vecwire.EncodeRequest{
		ProcessID:    id,
		CellID:       c.ID,
		NofPRB:       uint32(c.NofPRB),
		ExtendedCP:   c.CP == lte.ExtendedCP,
		RNTI:         uint32(rnti),
		Modulation:   uint32(cfg.Modulation),
		Subframe:     uint32(cfg.Subframe),
		RV:           uint32(cfg.RV),
		FirstPRB:     [2]uint32{uint32(cfg.Allocation.FirstPRB[0]), uint32(cfg.Allocation.FirstPRB[1])},
		AllocPRB:     uint32(cfg.Allocation.NofPRB),
		TBS:          uint32(cfg.TBS),
		TransportBlk: vecwire.PackBits(req.TransportBlock),
	}
	m.CQI, m.BetaCQI = fieldToWire(req.UCI.CQI)
	m.RI, m.BetaRI = fieldToWire(req.UCI.RI)
	m.ACK, m.BetaACK = fieldToWire(req.UCI.ACK)
	return m
}

func fieldToWire(f *uci.Field) ([]byte, float64) {
	if f == nil {
		return nil, 0
	}
	return append([]byte(nil), f.Bits...), f.Beta
}

func fieldFromWire(bits []byte, beta float64) *uci.Field {
	if len(bits) == 0 {
		return nil
	}
	return &uci.Field{Bits: bits, Beta: beta}
}

// decodeRequest is the inverse of NewEncodeRequest.
func decodeRequest(m *vecwire.EncodeRequest) (lte.Cell, uint16, pusch.Request, error) {
	cell := lte.Cell{ID: m.CellID, NofPRB: int(m.NofPRB), CP: lte.NormalCP, Ports: 1}
	if m.ExtendedCP {
		cell.CP = lte.ExtendedCP
	}
	if m.RNTI > 0xFFFF {
		return lte.Cell{}, 0, pusch.Request{}, fmt.Errorf("%w: rnti %d", lte.ErrInvalidConfiguration, m.RNTI)
	}
	var tb []uint8
	if m.RV == 0 {
		var err error
		if tb, err = vecwire.UnpackBits(m.TransportBlk, int(m.TBS)); err != nil {
			return lte.Cell{}, 0, pusch.Request{}, fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, err)
		}
	}
	req := pusch.Request{
		Config: harq.Config{
			Modulation: lte.Modulation(m.Modulation),
			TBS:        int(m.TBS),
			RV:         int(m.RV),
			Subframe:   int(m.Subframe),
			Allocation: lte.Allocation{
				NofPRB:   int(m.AllocPRB),
				FirstPRB: [2]int{int(m.FirstPRB[0]), int(m.FirstPRB[1])},
			},
		},
		TransportBlock: tb,
		UCI: uci.Payload{
			CQI: fieldFromWire(m.CQI, m.BetaCQI),
			RI:  fieldFromWire(m.RI, m.BetaRI),
			ACK: fieldFromWire(m.ACK, m.BetaACK),
		},
	}
	return cell, uint16(m.RNTI), req, nil
}

func encodeResponse(res *pusch.Result, withWaveform bool) *vecwire.EncodeResponse {
	out := &vecwire.EncodeResponse{
		RV:          uint32(res.RV),
		G:           uint32(res.G),
		NofRE:       uint32(res.NofRE),
		ControlRE:   [3]uint32{uint32(res.Control.CQI.NofRE), uint32(res.Control.RI.NofRE), uint32(res.Control.ACK.NofRE)},
		MatchedBits: res.MatchedBits,
		SubframeLen: uint32(len(res.Waveform)),
	}
	if withWaveform {
		out.Waveform = res.Waveform
	}
	return out
}
