// Package config loads the YAML description of one uplink subframe: cell and UE
// parameters, PUSCH allocation and the bit vectors to encode.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/pusch"
	"github.com/observe-l/ulsch/uci"
)

type UE struct {
	NCellID      uint32 `yaml:"ncellid"`
	NULRB        int    `yaml:"nulrb"`
	NSubframe    int    `yaml:"nsubframe"`
	RNTI         uint16 `yaml:"rnti"`
	CyclicPrefix string `yaml:"cyclic_prefix"`
}

type PUSCH struct {
	Modulation string  `yaml:"modulation"`
	PRBSet     []int   `yaml:"prbset"`
	RV         int     `yaml:"rv"`
	// Beta offsets are pointers so an explicit 0 is rejected instead of defaulted.
	BetaCQI *float64 `yaml:"beta_cqi"`
	BetaRI  *float64 `yaml:"beta_ri"`
	BetaACK *float64 `yaml:"beta_ack"`
	// MaxTBS sizes the HARQ soft buffer; 0 selects the largest uplink TBS.
	MaxTBS int `yaml:"max_tbs"`
}

// Vectors are '0'/'1' strings; whitespace and '_' are ignored.
type Vectors struct {
	TrBlkIn string `yaml:"trblkin"`
	CQI     string `yaml:"cqi"`
	RI      string `yaml:"ri"`
	ACK     string `yaml:"ack"`
}

type Output struct {
	Dump     string `yaml:"dump"`     // .json or .json.zst
	Waveform string `yaml:"waveform"` // cf32 capture
}

type Config struct {
	UE      UE      `yaml:"ue"`
	PUSCH   PUSCH   `yaml:"pusch"`
	Vectors Vectors `yaml:"vectors"`
	Output  Output  `yaml:"output"`
}

// Load reads, defaults and validates path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a YAML document.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", lte.ErrInvalidConfiguration, err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills unset beta offsets, cyclic prefix and allocation.
func (c *Config) ApplyDefaults() {
	for _, b := range []**float64{&c.PUSCH.BetaCQI, &c.PUSCH.BetaRI, &c.PUSCH.BetaACK} {
		if *b == nil {
			v := uci.DefaultBeta
			*b = &v
		}
	}
	if c.UE.CyclicPrefix == "" {
		c.UE.CyclicPrefix = lte.NormalCP.String()
	}
	if c.PUSCH.Modulation == "" {
		c.PUSCH.Modulation = lte.QPSK.String()
	}
	if len(c.PUSCH.PRBSet) == 0 {
		for i := 0; i < c.UE.NULRB; i++ {
			c.PUSCH.PRBSet = append(c.PUSCH.PRBSet, i)
		}
	}
}

// Validate checks every field the encoder consumes.
func (c *Config) Validate() error {
	cell, err := c.Cell()
	if err != nil {
		return err
	}
	if err := cell.Validate(); err != nil {
		return err
	}
	if _, err := lte.ParseModulation(c.PUSCH.Modulation); err != nil {
		return err
	}
	a, err := lte.AllocationFromPRBSet(c.PUSCH.PRBSet)
	if err != nil {
		return err
	}
	if err := a.Fits(cell); err != nil {
		return err
	}
	if c.PUSCH.RV < 0 || c.PUSCH.RV > harq.MaxRV {
		return fmt.Errorf("%w: rv %d", lte.ErrInvalidConfiguration, c.PUSCH.RV)
	}
	if c.UE.NSubframe < 0 || c.UE.NSubframe >= lte.SubframesPerFrame {
		return fmt.Errorf("%w: nsubframe %d", lte.ErrInvalidConfiguration, c.UE.NSubframe)
	}
	for i, b := range []*float64{c.PUSCH.BetaCQI, c.PUSCH.BetaRI, c.PUSCH.BetaACK} {
		name := [...]string{"beta_cqi", "beta_ri", "beta_ack"}[i]
		if b == nil {
			return fmt.Errorf("%w: %s unset", lte.ErrInvalidConfiguration, name)
		}
		if *b <= 0 || math.IsNaN(*b) || math.IsInf(*b, 0) {
			return fmt.Errorf("%w: %s %v", lte.ErrInvalidConfiguration, name, *b)
		}
	}
	if _, err := c.Bits(); err != nil {
		return err
	}
	return nil
}

// Cell returns the cell configuration.
func (c *Config) Cell() (lte.Cell, error) {
	cp, err := lte.ParseCyclicPrefix(c.UE.CyclicPrefix)
	if err != nil {
		return lte.Cell{}, err
	}
	return lte.Cell{ID: c.UE.NCellID, NofPRB: c.UE.NULRB, CP: cp, Ports: 1}, nil
}

// ParsedBits are the decoded bit vectors.
type ParsedBits struct {
	TransportBlock, CQI, RI, ACK []uint8
}

// Bits decodes the vectors section.
func (c *Config) Bits() (ParsedBits, error) {
	var p ParsedBits
	for _, f := range []struct {
		name string
		src  string
		dst  *[]uint8
	}{
		{"trblkin", c.Vectors.TrBlkIn, &p.TransportBlock},
		{"cqi", c.Vectors.CQI, &p.CQI},
		{"ri", c.Vectors.RI, &p.RI},
		{"ack", c.Vectors.ACK, &p.ACK},
	} {
		b, err := lte.ParseBits(f.src)
		if err != nil {
			return ParsedBits{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = b
	}
	if len(p.TransportBlock) == 0 {
		return ParsedBits{}, fmt.Errorf("%w: trblkin is empty", lte.ErrInvalidConfiguration)
	}
	return p, nil
}

// Request builds the encoder request for redundancy version rv.
func (c *Config) Request(rv int) (pusch.Request, error) {
	mod, err := lte.ParseModulation(c.PUSCH.Modulation)
	if err != nil {
		return pusch.Request{}, err
	}
	a, err := lte.AllocationFromPRBSet(c.PUSCH.PRBSet)
	if err != nil {
		return pusch.Request{}, err
	}
	bits, err := c.Bits()
	if err != nil {
		return pusch.Request{}, err
	}
	return pusch.Request{
		Config: harq.Config{
			Modulation: mod,
			TBS:        len(bits.TransportBlock),
			RV:         rv,
			Subframe:   c.UE.NSubframe,
			Allocation: a,
		},
		TransportBlock: bits.TransportBlock,
		UCI: uci.Payload{
			CQI: field(bits.CQI, c.PUSCH.BetaCQI),
			RI:  field(bits.RI, c.PUSCH.BetaRI),
			ACK: field(bits.ACK, c.PUSCH.BetaACK),
		},
	}, nil
}

func field(bits []uint8, beta *float64) *uci.Field {
	if len(bits) == 0 {
		return nil
	}
	b := uci.DefaultBeta
	if beta != nil {
		b = *beta
	}
	return &uci.Field{Bits: bits, Beta: b}
}
