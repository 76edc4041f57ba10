// Command worker runs a cache node: it registers with the master,
// serves rpc.WorkerService over the reflective grpc bridge in
// internal/rpc/grpcserver, and sends periodic heartbeats carrying its
// used-bytes and any files it has dropped since the last report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
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
	"github.com/tachyoncache/tachyon/internal/metrics"
	"github.com/tachyoncache/tachyon/internal/rpc"
	"github.com/tachyoncache/tachyon/internal/rpc/grpcserver"
	"github.com/tachyoncache/tachyon/internal/worker"
)

var (
	bindErr      error
	unmarshalErr error
	conf         cfg.WorkerConfig
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a tachyon cache worker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateWorkerConfig(&conf); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}
		return run(conf)
	},
}

func init() {
	cobra.OnInitialize(func() {
		unmarshalErr = viper.Unmarshal(&conf, viper.DecodeHook(cfg.DecodeHook()))
	})
	bindErr = cfg.BindWorkerFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(conf cfg.WorkerConfig) error {
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

	capacityBytes := int64(conf.CapacityBytes)
	if capacityBytes == 0 {
		capacityBytes, err = worker.ProbeDefaultCapacityBytes(string(conf.DataDir))
		if err != nil {
			return errors.Wrap(err, "probing default capacity")
		}
		log.Info("auto-detected cache capacity", "bytes", capacityBytes)
	}

	masterCC, err := grpc.NewClient(conf.MasterAddress, grpcserver.DialOptions()...)
	if err != nil {
		return errors.Wrapf(err, "dialing master at %s", conf.MasterAddress)
	}
	defer masterCC.Close()
	masterClient := grpcserver.NewMasterClient(masterCC)

	clk := clock.RealClock{}
	storage := worker.New(clk, masterClient, log, worker.Config{
		CapacityBytes:            capacityBytes,
		DataDir:                  string(conf.DataDir),
		UfsDataDir:               string(conf.UfsDataDir),
		PerUserRequestSpaceQPS:   conf.RequestSpaceRateLimitQPS,
		PerUserRequestSpaceBurst: conf.RequestSpaceRateLimitBurst,
	})
	users := worker.NewUsers(clk, string(conf.DataDir), conf.UserSessionTimeout, conf.UserSessionTimeout/2, log)
	svc := worker.NewService(storage, users)

	lis, err := net.Listen("tcp", conf.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", conf.ListenAddress)
	}
	gs := grpc.NewServer(grpcserver.ServerOptions()...)
	grpcserver.RegisterWorkerServer(gs, svc, workerCallObserver(met))

	metricsSrv := &http.Server{Addr: conf.MetricsAddress, Handler: promhttp.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("worker RPC server listening", "address", conf.ListenAddress)
		return gs.Serve(lis)
	})
	g.Go(func() error {
		log.Info("worker metrics server listening", "address", conf.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return heartbeatLoop(ctx, masterClient, storage, log, met, conf)
	})
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		return metricsSrv.Shutdown(context.Background())
	})

	return g.Wait()
}

// heartbeatLoop registers this worker with the master, then sends
// heartbeats on conf.HeartbeatInterval for as long as ctx is live,
// dispatching whatever Command the master's reply carries. A failed
// heartbeat is logged and retried on the next tick; a reply carrying
// CommandUnknown ends the loop with an error.
func heartbeatLoop(ctx context.Context, master *grpcserver.MasterClient, storage *worker.Storage, log *slog.Logger, met metrics.Handle, conf cfg.WorkerConfig) error {
	selfAddr := selfAddress(conf.ListenAddress)

	workerID, err := register(ctx, master, selfAddr, storage)
	if err != nil {
		return errors.Wrap(err, "registering with master")
	}
	log.Info("registered with master", "worker_id", workerID)

	ticker := time.NewTicker(conf.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			usedBytes := storage.UsedBytes()
			removed := storage.DrainRemovedFiles()

			cmd, err := master.WorkerHeartbeat(ctx, workerID, usedBytes, removed)
			met.WorkerHeartbeat(ctx, fmt.Sprintf("%d", workerID))
			if err != nil {
				log.Warn("heartbeat failed", "error", err)
				continue
			}
			if cmd.Type == rpc.CommandUnknown {
				return errors.Errorf("master replied with unknown command type %d", cmd.Type)
			}

			dispatchCommand(storage, cmd)
			if cmd.Type == rpc.CommandRegister {
				workerID, err = register(ctx, master, selfAddr, storage)
				if err != nil {
					log.Warn("re-registration failed", "error", err)
					continue
				}
				log.Info("re-registered with master", "worker_id", workerID)
			}
		}
	}
}

// register sends this worker's current resident-file set to the
// master and returns the worker-id half of its encoded registration
// reply.
func register(ctx context.Context, master *grpcserver.MasterClient, addr rpc.NetAddress, storage *worker.Storage) (int32, error) {
	rv, err := master.WorkerRegister(ctx, addr, storage.CapacityBytes(), storage.UsedBytes(), storage.ResidentFileIDs())
	if err != nil {
		return 0, err
	}
	workerID, _ := rpc.DecodeRegistration(rv)
	return workerID, nil
}

// dispatchCommand applies a heartbeat reply's instruction against
// storage. CommandRegister is handled by the caller, since it requires
// re-registering with the master rather than a local state change.
func dispatchCommand(storage *worker.Storage, cmd rpc.Command) {
	switch cmd.Type {
	case rpc.CommandFree:
		storage.HandleFree(cmd.Data)
	case rpc.CommandDelete:
		storage.HandleDelete(cmd.Data)
	}
}

// selfAddress splits a "host:port" listen address into an rpc.NetAddress.
func selfAddress(listenAddress string) rpc.NetAddress {
	host, port := splitHostPort(listenAddress)
	return rpc.NetAddress{Host: host, Port: port}
}

func splitHostPort(addr string) (string, int32) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}
	var port int
	_, _ = fmt.Sscanf(portStr, "%d", &port)
	return host, int32(port)
}

// workerCallObserver adapts grpcserver's per-call latency hook into a
// WorkerRPCLatency recording, classifying any non-nil error as failed.
func workerCallObserver(met metrics.Handle) grpcserver.CallObserver {
	return func(method string, d time.Duration, err error) {
		status := metrics.SuccessfulAttr
		if err != nil {
			status = metrics.FailedAttr
		}
		met.WorkerRPCLatency(context.Background(), d, method, status)
	}
}
