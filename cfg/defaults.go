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

import "time"

// GetDefaultLoggingConfig returns the logging defaults shared by the
// master and worker before any flag or config file has been applied.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: InfoLogSeverity,
		Format:   "json",
		LogRotate: LogRotateConfig{
			MaxFileSizeMb:   512,
			BackupFileCount: 10,
			Compress:        true,
		},
	}
}

func GetDefaultMasterConfig() MasterConfig {
	return MasterConfig{
		ListenAddress:  ":8090",
		MetricsAddress: ":9090",
		WorkerTimeout:  10 * time.Second,
		Logging:        GetDefaultLoggingConfig(),
	}
}

func GetDefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MasterAddress:              "localhost:8090",
		ListenAddress:              ":8091",
		MetricsAddress:             ":9091",
		DataDir:                    "/var/lib/tachyon/worker",
		UfsDataDir:                 "/var/lib/tachyon/worker/ufs",
		CapacityBytes:              0,
		HeartbeatInterval:          2 * time.Second,
		UserSessionTimeout:         10 * time.Minute,
		RequestSpaceRateLimitBurst: 4,
		Logging:                    GetDefaultLoggingConfig(),
	}
}
