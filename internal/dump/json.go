package dump

import (
	"fmt"
	"time"

	"github.com/francoispqt/gojay"

	"github.com/observe-l/ulsch/lte"
)

func (d *Dump) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("run_id", d.RunID)
	enc.StringKey("created", d.Created.Format(time.RFC3339Nano))
	enc.ObjectKey("cell", (*cellJSON)(&d.Cell))
	enc.IntKey("rnti", int(d.RNTI))
	enc.ArrayKey("transmissions", transmissions(d.Transmissions))
}

func (d *Dump) IsNil() bool { return d == nil }

func (d *Dump) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "run_id":
		return dec.String(&d.RunID)
	case "created":
		var s string
		if err := dec.String(&s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		d.Created = t
	case "cell":
		return dec.Object((*cellJSON)(&d.Cell))
	case "rnti":
		var v int
		if err := dec.Int(&v); err != nil {
			return err
		}
		d.RNTI = uint16(v)
	case "transmissions":
		ts := transmissions{}
		if err := dec.Array(&ts); err != nil {
			return err
		}
		d.Transmissions = ts
	}
	return nil
}

func (d *Dump) NKeys() int { return 5 }

type cellJSON lte.Cell

func (c *cellJSON) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("ncellid", int(c.ID))
	enc.IntKey("nulrb", c.NofPRB)
	enc.StringKey("cyclic_prefix", c.CP.String())
	enc.IntKey("ports", c.Ports)
}

func (c *cellJSON) IsNil() bool { return c == nil }

func (c *cellJSON) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "ncellid":
		var v int
		if err := dec.Int(&v); err != nil {
			return err
		}
		c.ID = uint32(v)
	case "nulrb":
		return dec.Int(&c.NofPRB)
	case "cyclic_prefix":
		var s string
		if err := dec.String(&s); err != nil {
			return err
		}
		cp, err := lte.ParseCyclicPrefix(s)
		if err != nil {
			return err
		}
		c.CP = cp
	case "ports":
		return dec.Int(&c.Ports)
	}
	return nil
}

func (c *cellJSON) NKeys() int { return 4 }

type transmissions []*Transmission

func (ts transmissions) MarshalJSONArray(enc *gojay.Encoder) {
	for _, t := range ts {
		enc.Object(t)
	}
}

func (ts transmissions) IsNil() bool { return len(ts) == 0 }

func (ts *transmissions) UnmarshalJSONArray(dec *gojay.Decoder) error {
	t := &Transmission{}
	if err := dec.Object(t); err != nil {
		return err
	}
	*ts = append(*ts, t)
	return nil
}

func (t *Transmission) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("rv", t.RV)
	enc.IntKey("tbs", t.TBS)
	enc.IntKey("G", t.G)
	enc.IntKey("nof_re", t.NofRE)
	enc.ArrayKey("control_re", ints(t.ControlRE[:]))
	enc.StringKey("matched_bits", t.MatchedBits)
	enc.StringKey("bits", t.Bits)
	enc.StringKey("scrambled", t.Scrambled)
	enc.ArrayKey("harq_buffers", strs(t.Buffers))
	enc.ArrayKey("pusch_symbols", iq(t.Symbols))
	enc.ArrayKey("grid", iq(t.Grid))
	enc.ArrayKey("waveform", iq(t.Waveform))
}

func (t *Transmission) IsNil() bool { return t == nil }

func (t *Transmission) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "rv":
		return dec.Int(&t.RV)
	case "tbs":
		return dec.Int(&t.TBS)
	case "G":
		return dec.Int(&t.G)
	case "nof_re":
		return dec.Int(&t.NofRE)
	case "control_re":
		var v ints
		if err := dec.Array(&v); err != nil {
			return err
		}
		copy(t.ControlRE[:], v)
	case "matched_bits":
		return dec.String(&t.MatchedBits)
	case "bits":
		return dec.String(&t.Bits)
	case "scrambled":
		return dec.String(&t.Scrambled)
	case "harq_buffers":
		var v strs
		if err := dec.Array(&v); err != nil {
			return err
		}
		t.Buffers = v
	case "pusch_symbols":
		return decodeIQ(dec, &t.Symbols)
	case "grid":
		return decodeIQ(dec, &t.Grid)
	case "waveform":
		return decodeIQ(dec, &t.Waveform)
	}
	return nil
}

func (t *Transmission) NKeys() int { return 12 }

type ints []int

func (v ints) MarshalJSONArray(enc *gojay.Encoder) {
	for _, x := range v {
		enc.Int(x)
	}
}

func (v ints) IsNil() bool { return len(v) == 0 }

func (v *ints) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var x int
	if err := dec.Int(&x); err != nil {
		return err
	}
	*v = append(*v, x)
	return nil
}

type strs []string

func (v strs) MarshalJSONArray(enc *gojay.Encoder) {
	for _, s := range v {
		enc.String(s)
	}
}

func (v strs) IsNil() bool { return len(v) == 0 }

func (v *strs) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var s string
	if err := dec.String(&s); err != nil {
		return err
	}
	*v = append(*v, s)
	return nil
}

// iq is a complex vector flattened to [re0, im0, re1, im1, ...].
type iq []complex64

func (v iq) MarshalJSONArray(enc *gojay.Encoder) {
	for _, x := range v {
		enc.Float32(real(x))
		enc.Float32(imag(x))
	}
}

func (v iq) IsNil() bool { return len(v) == 0 }

type floats []float32

func (v *floats) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var x float32
	if err := dec.Float32(&x); err != nil {
		return err
	}
	*v = append(*v, x)
	return nil
}

func decodeIQ(dec *gojay.Decoder, dst *[]complex64) error {
	var f floats
	if err := dec.Array(&f); err != nil {
		return err
	}
	if len(f)%2 != 0 {
		return fmt.Errorf("iq vector has odd length %d", len(f))
	}
	out := make([]complex64, len(f)/2)
	for i := range out {
		out[i] = complex(f[2*i], f[2*i+1])
	}
	*dst = out
	return nil
}
