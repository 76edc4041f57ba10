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
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// hookFunc dispatches string-sourced config values to each type's own
// UnmarshalText by switching on the target reflect.Type.
func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)

		switch t {
		case reflect.TypeOf(LogSeverity("")):
			var l LogSeverity
			if err := l.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return l, nil
		case reflect.TypeOf(ResolvedPath("")):
			var p ResolvedPath
			if err := p.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return p, nil
		case reflect.TypeOf(ByteSize(0)):
			var b ByteSize
			if err := b.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return b, nil
		}
		return data, nil
	}
}

// DecodeHook composes hookFunc with mapstructure's own string-to-
// duration conversion, so viper.Unmarshal handles "2s"-style flags for
// plain time.Duration fields without a custom type.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		hookFunc(),
	)
}
