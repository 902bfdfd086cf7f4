// Package config adapts the teacher's internal/util/paramtable.BaseTable —
// a viper-backed table with env-var overlay — to the indexing/search core's
// own settings: RAM buffer thresholds, stall watermarks, default top-K, and
// directory backend selection, instead of Milvus's etcd/minio/pulsar
// bootstrap knobs.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ivxsearch/ivx/internal/log"
)

// DefaultEnvPrefix is the environment-variable prefix scanned by
// loadFromEnv, replacing the teacher's "milvus" prefix.
const DefaultEnvPrefix = "ivx"

// BaseTable is a flattened, lower-cased key/value store loaded from a YAML
// file and then overlaid with IVX_-prefixed environment variables, mirroring
// paramtable.BaseTable's Init/Load/LoadWithDefault contract.
type BaseTable struct {
	once sync.Once
	mu   sync.RWMutex
	kv   map[string]string

	configFile string
}

// NewBaseTable constructs a table that will load configFile on first Init.
func NewBaseTable(configFile string) *BaseTable {
	return &BaseTable{kv: make(map[string]string), configFile: configFile}
}

// Init loads the YAML file (if present) and overlays environment variables.
// Safe to call multiple times; only the first call takes effect.
func (t *BaseTable) Init() {
	t.once.Do(func() {
		if t.configFile != "" {
			if _, err := os.Stat(t.configFile); err == nil {
				t.loadFromYaml(t.configFile)
			}
		}
		t.loadFromEnv()
	})
}

func (t *BaseTable) loadFromYaml(file string) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		log.Warn("config: failed to read yaml, falling back to defaults and env")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, key := range v.AllKeys() {
		str, err := cast.ToStringE(v.Get(key))
		if err != nil {
			continue
		}
		t.kv[strings.ToLower(key)] = str
	}
}

func (t *BaseTable) loadFromEnv() {
	prefix := DefaultEnvPrefix + "_"
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(parts[0]), prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(strings.ToLower(parts[0]), prefix))
		key = strings.ReplaceAll(key, "_", ".")
		t.kv[key] = parts[1]
	}
}

// Load returns the raw string for key, or ok=false.
func (t *BaseTable) Load(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.kv[strings.ToLower(key)]
	return v, ok
}

// LoadWithDefault returns the value for key, or defaultValue if absent.
func (t *BaseTable) LoadWithDefault(key, defaultValue string) string {
	if v, ok := t.Load(key); ok {
		return v
	}
	return defaultValue
}

// Save sets key to value directly, bypassing file/env loading — used by
// tests and by components that compute a derived setting at runtime.
func (t *BaseTable) Save(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kv[strings.ToLower(key)] = value
}

// ParseInt64WithDefault parses key as an int64, or returns defaultValue.
func (t *BaseTable) ParseInt64WithDefault(key string, defaultValue int64) int64 {
	v := t.LoadWithDefault(key, strconv.FormatInt(defaultValue, 10))
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// ParseIntWithDefault parses key as an int, or returns defaultValue.
func (t *BaseTable) ParseIntWithDefault(key string, defaultValue int) int {
	v := t.LoadWithDefault(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// ParseFloat64WithDefault parses key as a float64, or returns defaultValue.
func (t *BaseTable) ParseFloat64WithDefault(key string, defaultValue float64) float64 {
	v := t.LoadWithDefault(key, strconv.FormatFloat(defaultValue, 'f', -1, 64))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// ParseBoolWithDefault parses key as a bool, or returns defaultValue.
func (t *BaseTable) ParseBoolWithDefault(key string, defaultValue bool) bool {
	v := t.LoadWithDefault(key, strconv.FormatBool(defaultValue))
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
