// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoggingConfig is shared verbatim by both the master and worker
// processes.
type LoggingConfig struct {
	FilePath  ResolvedPath    `mapstructure:"file-path"`
	Severity  LogSeverity     `mapstructure:"severity"`
	Format    string          `mapstructure:"format"`
	LogRotate LogRotateConfig `mapstructure:"log-rotate"`
}

type LogRotateConfig struct {
	MaxFileSizeMb   int  `mapstructure:"max-file-size-mb"`
	BackupFileCount int  `mapstructure:"backup-file-count"`
	Compress        bool `mapstructure:"compress"`
}

// MasterConfig is the master process's full configuration.
type MasterConfig struct {
	ListenAddress  string        `mapstructure:"listen-address"`
	MetricsAddress string        `mapstructure:"metrics-address"`
	WorkerTimeout  time.Duration `mapstructure:"worker-timeout"`
	UnderfsAddress string        `mapstructure:"underfs-address"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// WorkerConfig is the worker process's full configuration.
type WorkerConfig struct {
	MasterAddress      string        `mapstructure:"master-address"`
	ListenAddress      string        `mapstructure:"listen-address"`
	MetricsAddress     string        `mapstructure:"metrics-address"`
	DataDir            ResolvedPath  `mapstructure:"data-dir"`
	UfsDataDir         ResolvedPath  `mapstructure:"ufs-data-dir"`
	CapacityBytes      ByteSize      `mapstructure:"capacity-bytes"` // 0 means auto-probe free disk space
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat-interval"`
	UserSessionTimeout time.Duration `mapstructure:"user-session-timeout"`
	// RequestSpaceRateLimitQPS bounds how often a single user may call
	// requestSpace; 0 disables the limiter.
	RequestSpaceRateLimitQPS   float64       `mapstructure:"request-space-rate-limit-qps"`
	RequestSpaceRateLimitBurst int           `mapstructure:"request-space-rate-limit-burst"`
	Logging                    LoggingConfig `mapstructure:"logging"`
}

// BindMasterFlags registers the master's flags and binds each one to
// its viper config key, one flag/BindPFlag pair per field.
func BindMasterFlags(fs *pflag.FlagSet) error {
	fs.String("listen-address", ":8090", "Address the master RPC service listens on.")
	if err := viper.BindPFlag("listen-address", fs.Lookup("listen-address")); err != nil {
		return err
	}

	fs.String("metrics-address", ":9090", "Address the Prometheus metrics exporter listens on.")
	if err := viper.BindPFlag("metrics-address", fs.Lookup("metrics-address")); err != nil {
		return err
	}

	fs.Duration("worker-timeout", 10*time.Second, "How long a worker may go without a heartbeat before being evicted.")
	if err := viper.BindPFlag("worker-timeout", fs.Lookup("worker-timeout")); err != nil {
		return err
	}

	fs.String("underfs-address", "", "Address of the backing under-filesystem.")
	if err := viper.BindPFlag("underfs-address", fs.Lookup("underfs-address")); err != nil {
		return err
	}

	return bindLoggingFlags(fs)
}

// BindWorkerFlags registers the worker's flags and binds each one to
// its viper config key.
func BindWorkerFlags(fs *pflag.FlagSet) error {
	fs.String("master-address", "localhost:8090", "Address of the master RPC service.")
	if err := viper.BindPFlag("master-address", fs.Lookup("master-address")); err != nil {
		return err
	}

	fs.String("listen-address", ":8091", "Address the worker RPC service listens on.")
	if err := viper.BindPFlag("listen-address", fs.Lookup("listen-address")); err != nil {
		return err
	}

	fs.String("metrics-address", ":9091", "Address the Prometheus metrics exporter listens on.")
	if err := viper.BindPFlag("metrics-address", fs.Lookup("metrics-address")); err != nil {
		return err
	}

	fs.String("data-dir", "/var/lib/tachyon/worker", "Local cache data directory.")
	if err := viper.BindPFlag("data-dir", fs.Lookup("data-dir")); err != nil {
		return err
	}

	fs.String("ufs-data-dir", "/var/lib/tachyon/worker/ufs", "Local mirror of checkpointed under-filesystem data.")
	if err := viper.BindPFlag("ufs-data-dir", fs.Lookup("ufs-data-dir")); err != nil {
		return err
	}

	fs.String("capacity-bytes", "0", "Cache capacity; 0 auto-probes available disk space. Accepts suffixes like 10GiB.")
	if err := viper.BindPFlag("capacity-bytes", fs.Lookup("capacity-bytes")); err != nil {
		return err
	}

	fs.Duration("heartbeat-interval", 2*time.Second, "Interval between heartbeats sent to the master.")
	if err := viper.BindPFlag("heartbeat-interval", fs.Lookup("heartbeat-interval")); err != nil {
		return err
	}

	fs.Duration("user-session-timeout", 10*time.Minute, "How long an idle user session's temp folders are retained.")
	if err := viper.BindPFlag("user-session-timeout", fs.Lookup("user-session-timeout")); err != nil {
		return err
	}

	fs.Float64("request-space-rate-limit-qps", 0, "Max requestSpace calls per second per user; 0 disables the limiter.")
	if err := viper.BindPFlag("request-space-rate-limit-qps", fs.Lookup("request-space-rate-limit-qps")); err != nil {
		return err
	}

	fs.Int("request-space-rate-limit-burst", 4, "Burst size for the requestSpace rate limiter.")
	if err := viper.BindPFlag("request-space-rate-limit-burst", fs.Lookup("request-space-rate-limit-burst")); err != nil {
		return err
	}

	return bindLoggingFlags(fs)
}

func bindLoggingFlags(fs *pflag.FlagSet) error {
	fs.String("logging.file-path", "", "Log file path; empty logs to stderr.")
	if err := viper.BindPFlag("logging.file-path", fs.Lookup("logging.file-path")); err != nil {
		return err
	}

	fs.String("logging.severity", string(InfoLogSeverity), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err := viper.BindPFlag("logging.severity", fs.Lookup("logging.severity")); err != nil {
		return err
	}

	fs.String("logging.format", "json", "Log encoding: json or text.")
	if err := viper.BindPFlag("logging.format", fs.Lookup("logging.format")); err != nil {
		return err
	}

	fs.Int("logging.log-rotate.max-file-size-mb", 512, "Max log file size before rotation.")
	if err := viper.BindPFlag("logging.log-rotate.max-file-size-mb", fs.Lookup("logging.log-rotate.max-file-size-mb")); err != nil {
		return err
	}

	fs.Int("logging.log-rotate.backup-file-count", 10, "Number of rotated log backups to retain.")
	if err := viper.BindPFlag("logging.log-rotate.backup-file-count", fs.Lookup("logging.log-rotate.backup-file-count")); err != nil {
		return err
	}

	fs.Bool("logging.log-rotate.compress", true, "Compress rotated log backups.")
	if err := viper.BindPFlag("logging.log-rotate.compress", fs.Lookup("logging.log-rotate.compress")); err != nil {
		return err
	}

	return nil
}
