package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. USERSYNC_API_ENDPOINT.
const EnvPrefix = "USERSYNC"

// LoadDefaults reads the process-wide default snapshot from an optional YAML
// file and the environment. Environment variables win over the file. Only
// keys that are actually set appear in the result, so FromMap still applies
// its own defaults for the rest.
//
// List-valued keys may be written as YAML sequences and apiHeaders as a YAML
// mapping; both are flattened to the comma-separated form FromMap expects.
func LoadDefaults(path string) (map[string]string, error) {
	v := viper.New()

	for _, key := range Keys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, fmt.Errorf("usersync/config: bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("usersync/config: read %s: %w", path, err)
			}
		}
	}

	out := make(map[string]string, len(Keys))
	for _, key := range Keys {
		if !v.IsSet(key) {
			continue
		}
		out[key] = flatten(v.Get(key))
	}
	return out, nil
}

// EnvName returns the environment variable consulted for a snapshot key:
// "threadPoolSize" becomes "USERSYNC_THREAD_POOL_SIZE".
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	b.WriteByte('_')
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func flatten(val any) string {
	switch t := val.(type) {
	case []any:
		return strings.Join(cast.ToStringSlice(t), ",")
	case []string:
		return strings.Join(t, ",")
	case map[string]any:
		pairs := make([]string, 0, len(t))
		for k, v := range t {
			pairs = append(pairs, k+":"+cast.ToString(v))
		}
		slices.Sort(pairs)
		return strings.Join(pairs, ",")
	default:
		return cast.ToString(t)
	}
}
