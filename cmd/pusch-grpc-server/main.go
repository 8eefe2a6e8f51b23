package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/observe-l/ulsch/internal/logging"
	"github.com/observe-l/ulsch/internal/rpc"
	"github.com/observe-l/ulsch/pusch"
)

func main() {
	var (
		addr        = flag.String("addr", ":50051", "gRPC listen address")
		metricsAddr = flag.String("metrics-addr", ":9102", "Prometheus listen address (empty disables)")
		maxTBS      = flag.Int("max-tbs", 0, "largest transport block per process (0 = standard maximum)")
		maxProcs    = flag.Int("max-processes", rpc.DefaultMaxProcesses, "live HARQ process ids before new ids are refused")
		maxEncoders = flag.Int("max-encoders", rpc.DefaultMaxEncoders, "cached (cell, RNTI) encoders")
		level       = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger, err := logging.New(os.Stderr, "pusch-grpc", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := rpc.NewServer(logger, pusch.NewMetrics(reg), *maxTBS,
		rpc.WithMaxProcesses(*maxProcs), rpc.WithMaxEncoders(*maxEncoders))

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen", "addr", *addr, "err", err)
	}
	grpcSrv := grpc.NewServer(rpc.ServerOptions()...)
	rpc.Register(grpcSrv, srv)

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics", "err", err)
			}
		}()
	}

	// Trap signals so in-flight encodes finish.
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-c
		logger.Info("shutting down", "signal", s, "processes", srv.ProcessCount())
		grpcSrv.GracefulStop()
		if metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(ctx)
		}
	}()

	logger.Info("encoder service listening", "addr", ln.Addr(), "metrics", *metricsAddr)
	if err := grpcSrv.Serve(ln); err != nil {
		logger.Fatal("serve", "err", err)
	}
}
