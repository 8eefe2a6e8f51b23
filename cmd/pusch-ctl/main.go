package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/observe-l/ulsch/internal/config"
	"github.com/observe-l/ulsch/internal/rpc"
	"github.com/observe-l/ulsch/internal/vecwire"
	"github.com/observe-l/ulsch/lte"
	"github.com/observe-l/ulsch/rf"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:50051", "encoder gRPC address")
		cmd      = flag.String("cmd", "encode", "command: encode|reset")
		cfgPath  = flag.StringP("config", "c", "pusch.yaml", "YAML scenario (encode)")
		id       = flag.Uint32("process", 0, "HARQ process id")
		rv       = flag.Int("rv", -1, "redundancy version (-1 uses the scenario)")
		wavePath = flag.String("waveform", "", "write the returned subframe as cf32")
		timeout  = flag.Duration("timeout", 3*time.Second, "call timeout")
	)
	flag.Parse()

	conn, err := grpc.Dial(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fail(err)
	}
	defer conn.Close()
	client := rpc.NewClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *cmd {
	case "encode":
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			fail(err)
		}
		if *rv >= 0 {
			cfg.PUSCH.RV = *rv
		}
		if *wavePath != "" {
			cfg.Output.Waveform = *wavePath
		}
		if err := encode(ctx, client, cfg, *id); err != nil {
			fail(err)
		}
	case "reset":
		res, err := client.Reset(ctx, &vecwire.ResetRequest{ProcessID: *id})
		if err != nil {
			fail(err)
		}
		fmt.Printf("reset process %d (existed=%v)\n", *id, res.Existed)
	default:
		fail(fmt.Errorf("unknown cmd %q", *cmd))
	}
}

func encode(ctx context.Context, client *rpc.Client, cfg *config.Config, id uint32) error {
	cell, err := cfg.Cell()
	if err != nil {
		return err
	}
	req, err := cfg.Request(cfg.PUSCH.RV)
	if err != nil {
		return err
	}
	m := rpc.NewEncodeRequest(id, cell, cfg.UE.RNTI, req)
	m.WantWaveform = cfg.Output.Waveform != ""
	res, err := client.Encode(ctx, m)
	if err != nil {
		return err
	}
	fmt.Printf("process=%d rv=%d G=%d re=%d cqi/ri/ack=%d/%d/%d samples=%d\n",
		id, res.RV, res.G, res.NofRE, res.ControlRE[0], res.ControlRE[1], res.ControlRE[2], res.SubframeLen)
	fmt.Println(lte.FormatBits(res.MatchedBits))
	if !m.WantWaveform {
		return nil
	}
	sink, err := rf.CreateFileSink(cfg.Output.Waveform, rf.WithHeader(uint32(lte.SampleRate(cell.NofPRB))))
	if err != nil {
		return err
	}
	if err := rf.Transmit(ctx, sink, time.Time{}, res.Waveform); err != nil {
		sink.Close()
		return err
	}
	return sink.Close()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "pusch-ctl:", err)
	os.Exit(1)
}
