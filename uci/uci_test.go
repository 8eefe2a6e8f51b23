package uci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/observe-l/ulsch/lte"
)

// 6 PRB allocation, normal CP, one code block of K=280.
var sixPRB = Params{
	Modulation:         lte.QPSK,
	Subcarriers:        72,
	Symbols:            12,
	InitialSubcarriers: 72,
	InitialSymbols:     12,
	SumK:               280,
}

func TestEncodeEmptyPayload(t *testing.T) {
	res, err := Encode(Payload{}, Params{})
	require.NoError(t, err)
	require.True(t, res.Empty())

	res, err = Encode(Payload{CQI: NewField(nil), ACK: &Field{}}, sixPRB)
	require.NoError(t, err)
	require.True(t, res.Empty())
	require.Zero(t, res.CQI.NofRE)
	require.Equal(t, 864, res.DataRE(864))
}

func TestEncodeOneBitAck(t *testing.T) {
	res, err := Encode(Payload{ACK: NewField([]uint8{1})}, sixPRB)
	require.NoError(t, err)
	// ceil(1*72*12*2/280) = 7
	require.Equal(t, 7, res.ACK.NofRE)
	require.Len(t, res.ACK.Bits, 14)
	for i := 0; i < len(res.ACK.Bits); i += 2 {
		assert.Equal(t, uint8(1), res.ACK.Bits[i])
		assert.Equal(t, lte.BitRepeat, res.ACK.Bits[i+1])
	}
	require.Zero(t, res.RI.NofRE)
	require.Zero(t, res.CQI.NofRE)
}

func TestAckRIPatterns(t *testing.T) {
	require.Equal(t, []uint8{0, lte.BitRepeat, lte.BitPlaceholder, lte.BitPlaceholder}, ackRIOneBit(0, 4))
	x := lte.BitPlaceholder
	require.Equal(t, []uint8{1, 0, 1, 1, 0, 1}, ackRITwoBit(1, 0, 2))
	require.Equal(t, []uint8{1, 1, x, x, 0, 1, x, x, 1, 0, x, x}, ackRITwoBit(1, 1, 4))
}

func TestRIUsesReedMullerAboveTwoBits(t *testing.T) {
	prm := sixPRB
	prm.Modulation = lte.QAM16
	res, err := Encode(Payload{RI: NewField([]uint8{1, 0, 1})}, prm)
	require.NoError(t, err)
	require.Equal(t, 4*res.RI.NofRE, len(res.RI.Bits))
	for _, b := range res.RI.Bits {
		require.LessOrEqual(t, b, uint8(1))
	}
}

func TestAckSaturatesAtFourSubcarrierColumns(t *testing.T) {
	res, err := Encode(Payload{ACK: &Field{Bits: []uint8{1, 0}, Beta: 1000}}, sixPRB)
	require.NoError(t, err)
	require.Equal(t, 4*72, res.ACK.NofRE)
}

func TestCQISmallAndLarge(t *testing.T) {
	small := make([]uint8, 4)
	small[0] = 1
	large := make([]uint8, 30)
	for i := range large {
		large[i] = uint8(i % 2)
	}
	res, err := Encode(Payload{CQI: NewField(small), RI: NewField([]uint8{1})}, sixPRB)
	require.NoError(t, err)
	// ceil(4*864*2/280) = 25
	require.Equal(t, 25, res.CQI.NofRE)
	require.Len(t, res.CQI.Bits, 50)

	res, err = Encode(Payload{CQI: NewField(large)}, sixPRB)
	require.NoError(t, err)
	// ceil((30+8)*864*2/280) = 235
	require.Equal(t, 235, res.CQI.NofRE)
	require.Len(t, res.CQI.Bits, 470)
}

func TestCQIOverflow(t *testing.T) {
	bits := make([]uint8, 20)
	_, err := Encode(Payload{CQI: &Field{Bits: bits, Beta: 20}}, sixPRB)
	require.ErrorIs(t, err, lte.ErrControlOverflow)

	// fits alone but not next to a large RI
	_, err = Encode(Payload{CQI: &Field{Bits: bits, Beta: 7}}, sixPRB)
	require.NoError(t, err)
	_, err = Encode(Payload{CQI: &Field{Bits: bits, Beta: 7}, RI: &Field{Bits: []uint8{1, 1}, Beta: 100}}, sixPRB)
	require.ErrorIs(t, err, lte.ErrControlOverflow)
}

func TestEncodeRejectsBadFields(t *testing.T) {
	_, err := Encode(Payload{ACK: &Field{Bits: []uint8{1}, Beta: -1}}, sixPRB)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	_, err = Encode(Payload{ACK: NewField(make([]uint8, 12))}, sixPRB)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	_, err = Encode(Payload{RI: NewField([]uint8{2})}, sixPRB)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
	prm := sixPRB
	prm.SumK = 0
	_, err = Encode(Payload{ACK: NewField([]uint8{1})}, prm)
	require.ErrorIs(t, err, lte.ErrInvalidConfiguration)
}

func TestBetaMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := rapid.IntRange(1, 11).Draw(t, "o")
		b1 := rapid.Float64Range(0.5, 20).Draw(t, "b1")
		b2 := b1 + rapid.Float64Range(0, 20).Draw(t, "delta")
		sumK := rapid.IntRange(40, 20000).Draw(t, "sumK")
		prm := sixPRB
		prm.SumK = sumK
		if q1, q2 := AckRIResources(o, b1, prm), AckRIResources(o, b2, prm); q2 < q1 {
			t.Fatalf("ack/ri: beta %v -> %d, beta %v -> %d", b1, q1, b2, q2)
		}
		if q1, q2 := CQIResources(o, b1, prm), CQIResources(o, b2, prm); q2 < q1 {
			t.Fatalf("cqi: beta %v -> %d, beta %v -> %d", b1, q1, b2, q2)
		}
	})
}
