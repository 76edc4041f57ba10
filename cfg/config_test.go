// Copyright 2025 Google LLC
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
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestBindMasterFlags_DefaultsUnmarshalCleanly(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("master", pflag.ContinueOnError)
	require.NoError(t, BindMasterFlags(fs))

	var c MasterConfig
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(DecodeHook())))
	require.Equal(t, ":8090", c.ListenAddress)
	require.Equal(t, 10*time.Second, c.WorkerTimeout)
	require.Equal(t, InfoLogSeverity, c.Logging.Severity)
}

func TestBindWorkerFlags_OverrideViaFlag(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	require.NoError(t, BindWorkerFlags(fs))
	require.NoError(t, fs.Parse([]string{"--master-address=master.internal:8090", "--capacity-bytes=4GiB"}))

	var c WorkerConfig
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(DecodeHook())))
	require.Equal(t, "master.internal:8090", c.MasterAddress)
	require.Equal(t, ByteSize(4<<30), c.CapacityBytes)
}
