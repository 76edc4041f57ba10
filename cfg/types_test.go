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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSeverity_UnmarshalText_Uppercases(t *testing.T) {
	var l LogSeverity
	require.NoError(t, l.UnmarshalText([]byte("warning")))
	assert.Equal(t, WarningLogSeverity, l)
}

func TestLogSeverity_UnmarshalText_RejectsUnknown(t *testing.T) {
	var l LogSeverity
	assert.Error(t, l.UnmarshalText([]byte("LOUD")))
}

func TestLogSeverity_Rank_OrdersFromVerboseToQuiet(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, DebugLogSeverity.Rank(), InfoLogSeverity.Rank())
	assert.Less(t, ErrorLogSeverity.Rank(), OffLogSeverity.Rank())
}

func TestLogSeverity_Rank_UnknownIsNegativeOne(t *testing.T) {
	assert.Equal(t, -1, LogSeverity("bogus").Rank())
}

func TestResolvedPath_UnmarshalText_MakesAbsolute(t *testing.T) {
	var p ResolvedPath
	require.NoError(t, p.UnmarshalText([]byte("relative/dir")))
	assert.True(t, filepath.IsAbs(string(p)))
}

func TestByteSize_UnmarshalText_PlainNumber(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("1024")))
	assert.Equal(t, ByteSize(1024), b)
}

func TestByteSize_UnmarshalText_Suffixes(t *testing.T) {
	cases := map[string]ByteSize{
		"1KiB":   1 << 10,
		"1MiB":   1 << 20,
		"1GiB":   1 << 30,
		"1TiB":   1 << 40,
		"1.5GiB": ByteSize(1.5 * (1 << 30)),
	}
	for text, want := range cases {
		var b ByteSize
		require.NoError(t, b.UnmarshalText([]byte(text)))
		assert.Equal(t, want, b, text)
	}
}

func TestByteSize_UnmarshalText_RejectsGarbage(t *testing.T) {
	var b ByteSize
	assert.Error(t, b.UnmarshalText([]byte("a lot")))
}
