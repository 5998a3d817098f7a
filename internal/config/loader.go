// Public domain.

package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "SHIFTSTORE_"

var listKeys = map[string]bool{"pattern": true, "focus_positions": true}

// Load layers defaults, a YAML file and environment variables.
//
// The file is path, or if path is empty the value of SHIFTSTORE_CONFIG.
// No file at all is fine.  Environment variables map to keys by dropping
// the prefix and lowering case, SHIFTSTORE_MAX_SEQUENCES to max_sequences.
// Lists such as pattern are given comma separated.
//
// The result is not validated, so that flags can still be applied.
func Load(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(k, v string) (string, interface{}) {
		k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
		if listKeys[k] {
			return k, strings.FieldsFunc(v, func(r rune) bool {
				return r == ',' || r == ' '
			})
		}
		return k, v
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	return cfg, nil
}
