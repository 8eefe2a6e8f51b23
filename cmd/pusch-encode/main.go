package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/observe-l/ulsch/internal/config"
	"github.com/observe-l/ulsch/internal/dump"
	"github.com/observe-l/ulsch/internal/logging"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/pusch"
	"github.com/observe-l/ulsch/rf"
	"github.com/observe-l/ulsch/scfdma"
)

func main() {
	var (
		cfgPath  = flag.StringP("config", "c", "pusch.yaml", "YAML scenario")
		dumpPath = flag.String("dump", "", "intermediate dump path (.json or .json.zst), overrides output.dump")
		wavePath = flag.String("waveform", "", "cf32 capture path, overrides output.waveform")
		norm     = flag.Bool("normalize", false, "scale the IFFT by 1/sqrt(N)")
		level    = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger, err := logging.New(os.Stderr, "pusch-encode", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", "path", *cfgPath, "err", err)
	}
	if *dumpPath != "" {
		cfg.Output.Dump = *dumpPath
	}
	if *wavePath != "" {
		cfg.Output.Waveform = *wavePath
	}
	if err := run(cfg, *norm, logger); err != nil {
		logger.Fatal("encode", "err", err)
	}
}

func run(cfg *config.Config, normalize bool, logger *log.Logger) error {
	cell, err := cfg.Cell()
	if err != nil {
		return err
	}
	enc, err := pusch.New(cell, pusch.WithLogger(logger),
		pusch.WithSynthesizer(scfdma.WithNormalization(normalize)))
	if err != nil {
		return err
	}
	if err := enc.SetRNTI(cfg.UE.RNTI); err != nil {
		return err
	}
	proc, err := enc.NewProcess(cfg.PUSCH.MaxTBS)
	if err != nil {
		return err
	}

	// An rv>0 scenario is a retransmission, so the initial transmission runs first.
	rvs := []int{0}
	if cfg.PUSCH.RV != 0 {
		rvs = append(rvs, cfg.PUSCH.RV)
	}
	d := dump.New(cell, cfg.UE.RNTI)
	var waves [][]complex64
	for _, rv := range rvs {
		req, err := cfg.Request(rv)
		if err != nil {
			return err
		}
		res, err := enc.Encode(proc, req)
		if err != nil {
			return fmt.Errorf("rv %d: %w", rv, err)
		}
		d.Add(res, proc.Buffers())
		waves = append(waves, res.Waveform)
		fmt.Printf("rv=%d tbs=%d G=%d re=%d cqi/ri/ack=%d/%d/%d samples=%d\n",
			res.RV, req.Config.TBS, res.G, res.NofRE,
			res.Control.CQI.NofRE, res.Control.RI.NofRE, res.Control.ACK.NofRE, len(res.Waveform))
	}

	if cfg.Output.Dump != "" {
		if err := d.WriteFile(cfg.Output.Dump); err != nil {
			return err
		}
		logger.Info("dump written", "path", cfg.Output.Dump, "run", d.RunID)
	}
	if cfg.Output.Waveform != "" {
		sink, err := rf.CreateFileSink(cfg.Output.Waveform, rf.WithHeader(uint32(lte.SampleRate(cell.NofPRB))))
		if err != nil {
			return err
		}
		if err := rf.Transmit(context.Background(), sink, time.Time{}, waves...); err != nil {
			sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
		logger.Info("waveform written", "path", cfg.Output.Waveform, "samples", sink.Samples())
	}
	return nil
}
