package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/uci"
)

func TestLoadSixPRB(t *testing.T) {
	c, err := Load("testdata/sixprb.yaml")
	require.NoError(t, err)

	cell, err := c.Cell()
	require.NoError(t, err)
	require.Equal(t, lte.Cell{ID: 1, NofPRB: 6, CP: lte.NormalCP, Ports: 1}, cell)
	require.Equal(t, uci.DefaultBeta, *c.PUSCH.BetaCQI)
	require.Equal(t, 2.5, *c.PUSCH.BetaACK)

	req, err := c.Request(0)
	require.NoError(t, err)
	require.Equal(t, 256, req.Config.TBS)
	require.Equal(t, lte.QPSK, req.Config.Modulation)
	require.Equal(t, lte.ContiguousAllocation(0, 6), req.Config.Allocation)
	require.Equal(t, 4, req.Config.Subframe)
	require.Nil(t, req.UCI.CQI)
	require.Nil(t, req.UCI.RI)
	require.Equal(t, &uci.Field{Bits: []uint8{1}, Beta: 2.5}, req.UCI.ACK)
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte(`
ue: {ncellid: 7, nulrb: 15}
vectors: {trblkin: "0000000000000000"}
`))
	require.NoError(t, err)
	require.Equal(t, "normal", c.UE.CyclicPrefix)
	require.Equal(t, "QPSK", c.PUSCH.Modulation)
	require.Len(t, c.PUSCH.PRBSet, 15)
	for _, b := range []*float64{c.PUSCH.BetaCQI, c.PUSCH.BetaRI, c.PUSCH.BetaACK} {
		require.NotNil(t, b)
		require.Equal(t, uci.DefaultBeta, *b)
	}
}

func TestExplicitZeroBetaRejected(t *testing.T) {
	_, err := Parse([]byte(`
ue: {ncellid: 7, nulrb: 6}
pusch: {beta_ack: 0}
vectors: {trblkin: "0000000000000000", ack: "1"}
`))
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	require.Contains(t, err.Error(), "beta_ack 0")
}

func TestValidate(t *testing.T) {
	for name, doc := range map[string]string{
		"cell id":    `{ue: {ncellid: 600, nulrb: 6}, vectors: {trblkin: "1"}}`,
		"bandwidth":  `{ue: {nulrb: 4}, vectors: {trblkin: "1"}}`,
		"modulation": `{ue: {nulrb: 6}, pusch: {modulation: 8PSK}, vectors: {trblkin: "1"}}`,
		"prbset":     `{ue: {nulrb: 6}, pusch: {prbset: [0, 2]}, vectors: {trblkin: "1"}}`,
		"rv":         `{ue: {nulrb: 6}, pusch: {rv: 4}, vectors: {trblkin: "1"}}`,
		"beta":       `{ue: {nulrb: 6}, pusch: {beta_ri: -1}, vectors: {trblkin: "1"}}`,
		"zero beta":  `{ue: {nulrb: 6}, pusch: {beta_ack: 0}, vectors: {trblkin: "1"}}`,
		"nan beta":   `{ue: {nulrb: 6}, pusch: {beta_cqi: .nan}, vectors: {trblkin: "1"}}`,
		"bits":       `{ue: {nulrb: 6}, vectors: {trblkin: "10a1"}}`,
		"empty tb":   `{ue: {nulrb: 6}}`,
		"cp":         `{ue: {nulrb: 6, cyclic_prefix: long}, vectors: {trblkin: "1"}}`,
		"yaml":       `ue: [`,
	} {
		_, err := Parse([]byte(doc))
		require.ErrorIs(t, err, lte.ErrInvalidConfiguration, name)
	}
	_, err := Parse([]byte(`{ue: {nulrb: 6}, pusch: {prbset: [5, 6]}, vectors: {trblkin: "1"}}`))
	require.ErrorIs(t, err, lte.ErrAllocationMismatch)
}
