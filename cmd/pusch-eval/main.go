package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/observe-l/ulsch/grid"
	"github.com/observe-l/ulsch/harq"
	"github.com/observe-l/ulsch/internal/impair"
	"github.com/observe-l/ulsch/internal/logging"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/modulation"
	"github.com/observe-l/ulsch/pusch"
	"github.com/observe-l/ulsch/uci"
)

type params struct {
	nofPRB   int
	cp       lte.CyclicPrefix
	mod      lte.Modulation
	tbs      int
	ack      int
	runs     int
	parallel int
	snrDB    float64
	drop     float64
	seed     uint64
}

type report struct {
	params
	g, nofRE, ackRE int
	subframes       int
	elapsed         time.Duration
	dropped         int
	bits, errors    int
	mismatches      int
}

func main() {
	var (
		nofPRB   = flag.Int("prb", 25, "cell and allocation bandwidth in PRB")
		cpName   = flag.String("cp", "normal", "cyclic prefix: normal|extended")
		modName  = flag.String("mod", "16QAM", "modulation: QPSK|16QAM|64QAM")
		tbs      = flag.Int("tbs", 5160, "transport block size in bits")
		ack      = flag.Int("ack", 1, "HARQ-ACK bits per subframe (0..2)")
		runs     = flag.Int("runs", 200, "subframes to encode")
		parallel = flag.Int("parallel", 4, "concurrent encodes")
		snr      = flag.Float64("snr", math.Inf(1), "per-RE SNR in dB applied before demodulation")
		drop     = flag.Float64("drop", 0, "probability a subframe is lost")
		seed     = flag.Uint64("seed", 42, "random seed")
		out      = flag.String("out", "docs/reports/pusch_eval.md", "output markdown path")
		level    = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()
	logger, err := logging.New(os.Stderr, "pusch-eval", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cp, err := lte.ParseCyclicPrefix(*cpName)
	if err != nil {
		logger.Fatal("cp", "err", err)
	}
	mod, err := lte.ParseModulation(*modName)
	if err != nil {
		logger.Fatal("modulation", "err", err)
	}
	p := params{nofPRB: *nofPRB, cp: cp, mod: mod, tbs: *tbs, ack: *ack, runs: *runs, parallel: *parallel, snrDB: *snr, drop: *drop, seed: *seed}
	r, err := evaluate(context.Background(), p, logger)
	if err != nil {
		logger.Fatal("evaluate", "err", err)
	}
	if err := writeReport(*out, r); err != nil {
		logger.Fatal("report", "err", err)
	}
	logger.Info("done", "subframes", r.subframes, "elapsed", r.elapsed, "dropped", r.dropped, "bit_errors", r.errors, "mismatches", r.mismatches, "report", *out)
}

// evaluate encodes p.runs random subframes in batches of p.parallel, passes each grid
// through the impairments and counts hard-decision errors against the scrambled bits.
func evaluate(ctx context.Context, p params, logger *log.Logger) (report, error) {
	p.parallel = max(p.parallel, 1)
	r := report{params: p}
	cell := lte.Cell{ID: 1, NofPRB: p.nofPRB, CP: p.cp, Ports: 1}
	enc, err := pusch.New(cell, pusch.WithLogger(logger))
	if err != nil {
		return r, err
	}
	if err := enc.SetRNTI(61); err != nil {
		return r, err
	}
	procs := make([]*harq.Process, p.parallel)
	for i := range procs {
		if procs[i], err = enc.NewProcess(p.tbs); err != nil {
			return r, err
		}
	}
	rng := rand.New(rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15))
	alloc := lte.ContiguousAllocation(0, p.nofPRB)
	loss := impair.NewBernoulli(p.drop, rng)
	noise := impair.NewAWGN(p.snrDB, rng)

	for done := 0; done < p.runs; {
		n := min(p.parallel, p.runs-done)
		jobs := make([]pusch.Job, n)
		for i := range jobs {
			req := pusch.Request{
				Config: harq.Config{
					Modulation: p.mod,
					TBS:        p.tbs,
					Subframe:   (done + i) % lte.SubframesPerFrame,
					Allocation: alloc,
				},
				TransportBlock: randomBits(rng, p.tbs),
			}
			if p.ack > 0 {
				req.UCI.ACK = uci.NewField(randomBits(rng, p.ack))
			}
			jobs[i] = pusch.Job{Process: procs[i], Request: req}
		}
		t0 := time.Now()
		results, err := enc.EncodeBatch(ctx, jobs, p.parallel)
		r.elapsed += time.Since(t0)
		if err != nil {
			return r, err
		}
		for i, res := range results {
			r.g, r.nofRE, r.ackRE = res.G, res.NofRE, res.Control.ACK.NofRE
			if loss.Drop() {
				r.dropped++
				continue
			}
			rx, err := receive(res, p.mod, alloc, jobs[i].Request.Config.Subframe, noise)
			if err != nil {
				return r, err
			}
			nerr := impair.BitErrors(rx, res.Scrambled)
			r.bits += len(res.Scrambled)
			r.errors += nerr
			if nerr > 0 {
				r.mismatches++
			}
		}
		done += n
		r.subframes = done
	}
	return r, nil
}

// receive hard-decodes the PUSCH bits from the noisy grid.
func receive(res *pusch.Result, m lte.Modulation, a lte.Allocation, subframe int, noise *impair.AWGN) ([]uint8, error) {
	sym, err := grid.Extract(res.Grid, a, subframe)
	if err != nil {
		return nil, err
	}
	if sym, err = grid.InverseTransformPrecode(noise.Apply(sym), a.Subcarriers()); err != nil {
		return nil, err
	}
	return modulation.Demodulate(sym, m)
}

func randomBits(rng *rand.Rand, n int) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = uint8(rng.IntN(2))
	}
	return b
}

func writeReport(path string, r report) error {
	perSF := time.Duration(0)
	if r.subframes > 0 {
		perSF = r.elapsed / time.Duration(r.subframes)
	}
	ber := 0.0
	if r.bits > 0 {
		ber = float64(r.errors) / float64(r.bits)
	}
	rate := 0.0
	if r.g > 0 {
		rate = float64(r.tbs+24) / float64(r.g)
	}
	s := fmt.Sprintf(`# PUSCH Encoder Evaluation

Cell: %d PRB, %s CP
Params: mod=%s TBS=%d ack=%d runs=%d parallel=%d snr=%.1fdB drop=%.3f seed=%d

| G | NofRE | ACK RE | code rate | time/subframe | subframes/s |
|---|-------|--------|-----------|---------------|-------------|
| %d | %d | %d | %.3f | %v | %.1f |

Dropped subframes: %d
Raw bit errors: %d / %d (BER %.3e), subframes with errors: %d
`, r.nofPRB, r.cp, r.mod, r.tbs, r.ack, r.runs, r.parallel, r.snrDB, r.drop, r.seed,
		r.g, r.nofRE, r.ackRE, rate, perSF, float64(r.subframes)/r.elapsed.Seconds(),
		r.dropped, r.errors, r.bits, ber, r.mismatches)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}
