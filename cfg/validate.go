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

import "fmt"

func isValidLogRotateConfig(c *LogRotateConfig) error {
	if c.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (retain all) or a positive value")
	}
	return nil
}

func isValidLoggingConfig(c *LoggingConfig) error {
	if _, ok := severityRanking[c.Severity]; !ok {
		return fmt.Errorf("invalid logging.severity: %s", c.Severity)
	}
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid logging.format: %s, must be json or text", c.Format)
	}
	return isValidLogRotateConfig(&c.LogRotate)
}

// ValidateMasterConfig returns a non-nil error if c is unusable.
func ValidateMasterConfig(c *MasterConfig) error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen-address must not be empty")
	}
	if c.WorkerTimeout <= 0 {
		return fmt.Errorf("worker-timeout must be positive")
	}
	if err := isValidLoggingConfig(&c.Logging); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}
	return nil
}

// ValidateWorkerConfig returns a non-nil error if c is unusable.
func ValidateWorkerConfig(c *WorkerConfig) error {
	if c.MasterAddress == "" {
		return fmt.Errorf("master-address must not be empty")
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("listen-address must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data-dir must not be empty")
	}
	if c.CapacityBytes < 0 {
		return fmt.Errorf("capacity-bytes must not be negative")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat-interval must be positive")
	}
	if c.UserSessionTimeout <= 0 {
		return fmt.Errorf("user-session-timeout must be positive")
	}
	if err := isValidLoggingConfig(&c.Logging); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}
	return nil
}
