package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/unkn0wn-root/kvcache/adapter"
)

// cacheKeys are the adapter options that can also come from KVCACHE_CACHE_*.
var cacheKeys = []string{
	"url", "host", "expiry", "namespace", "prefix", "timeout",
	"path", "bucket",
	"max_cost", "num_counters", "buffer_items",
	"life_window", "clean_window", "hard_max_cache_size_mb",
	"addr", "password", "db",
}

// newViper reads path (TOML, YAML or JSON by extension) when set, and binds
// KVCACHE_* environment variables.
//
//	driver = "bolt"
//	[log]
//	level = "info"
//	format = "json"
//	file = "/var/log/kvcache.log"
//	[cache]
//	path = "/var/cache/kvcache.db"
//	expiry = "1h"
//	[serve]
//	addr = ":4001"
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("driver", "memory")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
	v.SetDefault("serve.addr", ":4001")

	v.SetEnvPrefix("KVCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range cacheKeys {
		if err := v.BindEnv("cache." + k); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// adapterConfig collects the [cache] table plus any bound env overrides.
func adapterConfig(v *viper.Viper) adapter.Config {
	cfg := adapter.Config{}
	for k, val := range v.GetStringMap("cache") {
		cfg[k] = val
	}
	for _, k := range cacheKeys {
		if v.IsSet("cache." + k) {
			cfg[k] = v.Get("cache." + k)
		}
	}
	return cfg
}
