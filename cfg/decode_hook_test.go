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
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeHookTestConfig struct {
	SeverityParam LogSeverity
	PathParam     ResolvedPath
	SizeParam     ByteSize
	DurationParam time.Duration
}

func decodeInto(t *testing.T, args []string) decodeHookTestConfig {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("severityParam", "INFO", "")
	fs.String("pathParam", "", "")
	fs.String("sizeParam", "0", "")
	fs.Duration("durationParam", 0, "")
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	require.NoError(t, v.BindPFlag("SeverityParam", fs.Lookup("severityParam")))
	require.NoError(t, v.BindPFlag("PathParam", fs.Lookup("pathParam")))
	require.NoError(t, v.BindPFlag("SizeParam", fs.Lookup("sizeParam")))
	require.NoError(t, v.BindPFlag("DurationParam", fs.Lookup("durationParam")))

	var c decodeHookTestConfig
	require.NoError(t, v.Unmarshal(&c, viper.DecodeHook(DecodeHook())))
	return c
}

func TestDecodeHook_LogSeverityUppercases(t *testing.T) {
	c := decodeInto(t, []string{"--severityParam=debug"})
	assert.Equal(t, DebugLogSeverity, c.SeverityParam)
}

func TestDecodeHook_LogSeverityRejectsUnknown(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("severityParam", "INFO", "")
	require.NoError(t, fs.Parse([]string{"--severityParam=LOUD"}))
	v := viper.New()
	require.NoError(t, v.BindPFlag("SeverityParam", fs.Lookup("severityParam")))

	var c decodeHookTestConfig
	err := v.Unmarshal(&c, viper.DecodeHook(DecodeHook()))
	assert.Error(t, err)
}

func TestDecodeHook_ResolvedPathIsAbsolute(t *testing.T) {
	c := decodeInto(t, []string{"--pathParam=relative/dir"})
	assert.True(t, filepath.IsAbs(string(c.PathParam)))
}

func TestDecodeHook_ByteSizeSuffixes(t *testing.T) {
	c := decodeInto(t, []string{"--sizeParam=2GiB"})
	assert.Equal(t, ByteSize(2<<30), c.SizeParam)
}

func TestDecodeHook_ByteSizePlainNumber(t *testing.T) {
	c := decodeInto(t, []string{"--sizeParam=4096"})
	assert.Equal(t, ByteSize(4096), c.SizeParam)
}

func TestDecodeHook_DurationStillWorks(t *testing.T) {
	c := decodeInto(t, []string{"--durationParam=30s"})
	assert.Equal(t, 30*time.Second, c.DurationParam)
}
