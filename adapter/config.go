package adapter

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the loosely typed option set accepted by SetConfig and by the
// driver registry. Keys are matched case-insensitively; unknown keys are ignored.
//
//	url | host            backend address
//	expiry                default TTL, seconds or shorthand ("1h", "2d")
//	namespace | prefix    key scope used by Flush
//	timeout               remote request timeout
//
// Variant specific keys are documented on each adapter.
type Config map[string]any

// Settings is Config decoded. Nil fields were absent from the Config.
type Settings struct {
	URL       *string        `mapstructure:"url"`
	Host      *string        `mapstructure:"host"`
	Expiry    *time.Duration `mapstructure:"expiry"`
	Namespace *string        `mapstructure:"namespace"`
	Prefix    *string        `mapstructure:"prefix"`
	Timeout   *time.Duration `mapstructure:"timeout"`

	// bolt
	Path   *string `mapstructure:"path"`
	Bucket *string `mapstructure:"bucket"`

	// ristretto
	NumCounters *int64 `mapstructure:"num_counters"`
	MaxCost     *int64 `mapstructure:"max_cost"`
	BufferItems *int64 `mapstructure:"buffer_items"`

	// bigcache
	LifeWindow         *time.Duration `mapstructure:"life_window"`
	CleanWindow        *time.Duration `mapstructure:"clean_window"`
	HardMaxCacheSizeMB *int           `mapstructure:"hard_max_cache_size_mb"`

	// redis
	Addr     *string `mapstructure:"addr"`
	Password *string `mapstructure:"password"`
	DB       *int    `mapstructure:"db"`
}

// ParseSettings decodes cfg. A nil or empty cfg yields zero Settings.
func ParseSettings(cfg Config) (Settings, error) {
	var s Settings
	if len(cfg) == 0 {
		return s, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       durationDecodeHook(),
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(map[string]any(cfg)); err != nil {
		return s, fmt.Errorf("kvcache: decode config: %w", err)
	}
	return s, nil
}

// Address returns url, falling back to host.
func (s Settings) Address() (string, bool) {
	if s.URL != nil && *s.URL != "" {
		return *s.URL, true
	}
	if s.Host != nil && *s.Host != "" {
		return *s.Host, true
	}
	return "", false
}

// Scope returns namespace, falling back to prefix.
func (s Settings) Scope() (string, bool) {
	if s.Namespace != nil {
		return *s.Namespace, true
	}
	if s.Prefix != nil {
		return *s.Prefix, true
	}
	return "", false
}

// durationDecodeHook accepts plain seconds (int, float or numeric string) and
// the shorthand understood by ParseExpiry. Zero and "no expiry" decode to 0.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf(time.Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}

		var d time.Duration
		switch v := data.(type) {
		case string:
			parsed, err := ParseExpiry(v)
			if err != nil {
				return nil, err
			}
			d = parsed
		case int:
			d = FromSeconds(int64(v))
		case int64:
			d = FromSeconds(v)
		case uint64:
			d = FromSeconds(int64(v))
		case float64:
			d = time.Duration(v * float64(time.Second))
		case time.Duration:
			d = v
		default:
			return nil, fmt.Errorf("kvcache: unsupported duration type %T", data)
		}
		if d < 0 {
			d = 0
		}
		return d, nil
	}
}
