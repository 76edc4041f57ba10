// Command master runs the namespace/placement authority: it hosts
// rpc.MasterService over the reflective grpc bridge in
// internal/rpc/grpcserver, exposes otel/Prometheus metrics, and
// periodically sweeps timed-out workers out of the registry.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tachyoncache/tachyon/cfg"
	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/logger"
	"github.com/tachyoncache/tachyon/internal/master"
	"github.com/tachyoncache/tachyon/internal/metrics"
	"github.com/tachyoncache/tachyon/internal/rpc/grpcserver"
)

var (
	bindErr      error
	unmarshalErr error
	conf         cfg.MasterConfig
)

var rootCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the tachyon master server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateMasterConfig(&conf); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}
		return run(conf)
	},
}

func init() {
	cobra.OnInitialize(func() {
		unmarshalErr = viper.Unmarshal(&conf, viper.DecodeHook(cfg.DecodeHook()))
	})
	bindErr = cfg.BindMasterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(conf cfg.MasterConfig) error {
	if err := logger.Init(logger.Config{
		FilePath: string(conf.Logging.FilePath),
		Severity: string(conf.Logging.Severity),
		Format:   conf.Logging.Format,
		Rotate: logger.RotateConfig{
			MaxFileSizeMB:   conf.Logging.LogRotate.MaxFileSizeMb,
			BackupFileCount: conf.Logging.LogRotate.BackupFileCount,
			Compress:        conf.Logging.LogRotate.Compress,
		},
	}); err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	defer logger.Close()
	log := logger.Logger()

	exporter, err := otelprom.New()
	if err != nil {
		return errors.Wrap(err, "creating prometheus exporter")
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	met, err := metrics.NewOTelMetrics(ctx)
	if err != nil {
		return errors.Wrap(err, "registering metrics instruments")
	}

	clk := clock.RealClock{}
	svc := master.New(clk, master.Config{
		WorkerTimeoutMs: conf.WorkerTimeout.Milliseconds(),
		UnderfsAddress:  conf.UnderfsAddress,
	})

	lis, err := net.Listen("tcp", conf.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", conf.ListenAddress)
	}
	gs := grpc.NewServer(grpcserver.ServerOptions()...)
	grpcserver.RegisterMasterServer(gs, svc, masterCallObserver(met))

	metricsSrv := &http.Server{Addr: conf.MetricsAddress, Handler: promhttp.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("master RPC server listening", "address", conf.ListenAddress)
		return gs.Serve(lis)
	})
	g.Go(func() error {
		log.Info("master metrics server listening", "address", conf.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweepTimedOutWorkers(ctx, svc, log, met, conf.WorkerTimeout)
	})
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		return metricsSrv.Shutdown(context.Background())
	})

	return g.Wait()
}

// sweepTimedOutWorkers periodically drops workers that have missed
// their heartbeat deadline, per the master's membership contract.
func sweepTimedOutWorkers(ctx context.Context, svc *master.Service, log *slog.Logger, met metrics.Handle, timeout time.Duration) error {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := svc.EvictTimedOutWorkers(); len(evicted) > 0 {
				log.Info("evicted timed-out workers", "count", len(evicted), "ids", evicted)
				for _, id := range evicted {
					met.WorkerTimeout(ctx, strconv.Itoa(int(id)))
				}
			}
		}
	}
}

// masterCallObserver adapts grpcserver's per-call latency hook into a
// MasterRPCLatency recording, classifying any non-nil error as failed.
func masterCallObserver(met metrics.Handle) grpcserver.CallObserver {
	return func(method string, d time.Duration, err error) {
		status := metrics.SuccessfulAttr
		if err != nil {
			status = metrics.FailedAttr
		}
		met.MasterRPCLatency(context.Background(), d, method, status)
	}
}
