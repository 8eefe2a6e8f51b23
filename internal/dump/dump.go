// Package dump writes encoder outputs as JSON for comparison against reference vectors.
// Files ending in ".zst" are zstd compressed.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/pusch"
)

// Dump is one run: a cell, an RNTI and the transmissions encoded on one process.
type Dump struct {
	RunID         string
	Created       time.Time
	Cell          lte.Cell
	RNTI          uint16
	Transmissions []*Transmission
}

// Transmission holds the products of one Encode call. Bit vectors use the
// lte.FormatBits alphabet; complex vectors are stored as interleaved re/im pairs.
type Transmission struct {
	RV          int
	TBS         int
	G           int
	NofRE       int
	ControlRE   [3]int // cqi, ri, ack
	MatchedBits string
	Bits        string
	Scrambled   string
	Buffers     []string
	Symbols     []complex64
	Grid        []complex64
	Waveform    []complex64
}

// New starts a dump with a fresh run id.
func New(c lte.Cell, rnti uint16) *Dump {
	return &Dump{RunID: uuid.NewString(), Created: time.Now().UTC(), Cell: c, RNTI: rnti}
}

// Add records res. buffers are the HARQ circular buffers after the call.
func (d *Dump) Add(res *pusch.Result, buffers [][]uint8) {
	t := &Transmission{
		RV:          res.RV,
		TBS:         res.Segmentation.TBS,
		G:           res.G,
		NofRE:       res.NofRE,
		ControlRE:   [3]int{res.Control.CQI.NofRE, res.Control.RI.NofRE, res.Control.ACK.NofRE},
		MatchedBits: lte.FormatBits(res.MatchedBits),
		Bits:        lte.FormatBits(res.Bits),
		Scrambled:   lte.FormatBits(res.Scrambled),
		Symbols:     res.Symbols,
		Grid:        res.Grid.Elements(),
		Waveform:    res.Waveform,
	}
	for _, b := range buffers {
		t.Buffers = append(t.Buffers, lte.FormatBits(b))
	}
	d.Transmissions = append(d.Transmissions, t)
}

// WriteFile writes d to path, creating parent directories.
func (d *Dump) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compressed(path) {
		if zw, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return err
		}
		w = zw
	}
	if err := d.Encode(w); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Encode writes d as JSON.
func (d *Dump) Encode(w io.Writer) error {
	enc := gojay.BorrowEncoder(w)
	defer enc.Release()
	return enc.EncodeObject(d)
}

// ReadFile loads a dump written by WriteFile.
func ReadFile(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if compressed(path) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	return Decode(r)
}

// Decode reads a JSON dump.
func Decode(r io.Reader) (*Dump, error) {
	d := &Dump{}
	dec := gojay.BorrowDecoder(r)
	defer dec.Release()
	if err := dec.DecodeObject(d); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return d, nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }
