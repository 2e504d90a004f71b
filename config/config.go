// Package config loads the timewarp kernel's tunables from TOML, YAML, or
// environment variables, grounded on the teacher framework's feeders
// package (github.com/GoCodeAlone/modular/feeders): the same file-based
// feed-then-coerce pattern, trimmed down to the handful of fields the
// dispatch loop actually reads.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// KernelConfig tunes a timewarp.Registry's dispatch loop. Fields are
// split into static (only read at Registry construction) and dynamic
// (safe to hot-reload — see DynamicFields) per the teacher's
// internal/reload convention of classifying config fields by whether
// changing them at runtime is safe.
type KernelConfig struct {
	// InitialDrainTimeout is the first-pass mailbox drain window used by
	// the idle-advance rule (spec.md §4.1). Dynamic.
	InitialDrainTimeout time.Duration `toml:"initial_drain_timeout" yaml:"initial_drain_timeout"`

	// FossilCollectionLogLevel names a log level for fossil collection
	// (e.g. "debug" in steady state, "info" while diagnosing a leak).
	// Dynamic. Neither timewarp.RegistryConfig nor the dispatch loop reads
	// it; the kernel logs fossil collection at debug level.
	FossilCollectionLogLevel string `toml:"fossil_collection_log_level" yaml:"fossil_collection_log_level"`

	// MailboxCapacity bounds the in-memory transport's per-actor buffer.
	// Static: changing it requires re-creating the transport.
	MailboxCapacity int `toml:"mailbox_capacity" yaml:"mailbox_capacity"`
}

// DefaultKernelConfig mirrors timewarp.DefaultRegistryConfig's tunables.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		InitialDrainTimeout:      50 * time.Millisecond,
		FossilCollectionLogLevel: "debug",
		MailboxCapacity:          256,
	}
}

// DynamicFields lists the struct field names safe to apply from a
// hot-reload diff without restarting the actor's dispatch loop; anything
// else is rejected by internal/reload as a static-field change.
func DynamicFields() []string {
	return []string{"InitialDrainTimeout", "FossilCollectionLogLevel"}
}

// wireConfig mirrors KernelConfig but carries InitialDrainTimeout as a
// string, since neither BurntSushi/toml nor yaml.v3 decode a duration
// string straight into a time.Duration field (time.Duration implements
// neither's text-unmarshal hook). Grounded on the teacher's YamlFeeder,
// which special-cases time.Duration fields the same way: decode as a
// string, then time.ParseDuration.
type wireConfig struct {
	InitialDrainTimeout      string `toml:"initial_drain_timeout" yaml:"initial_drain_timeout"`
	FossilCollectionLogLevel string `toml:"fossil_collection_log_level" yaml:"fossil_collection_log_level"`
	MailboxCapacity          int    `toml:"mailbox_capacity" yaml:"mailbox_capacity"`
}

func (w wireConfig) resolve(base KernelConfig) (KernelConfig, error) {
	cfg := base
	if w.InitialDrainTimeout != "" {
		d, err := time.ParseDuration(w.InitialDrainTimeout)
		if err != nil {
			return cfg, fmt.Errorf("cannot convert string '%s' to time.Duration: %w", w.InitialDrainTimeout, err)
		}
		cfg.InitialDrainTimeout = d
	}
	if w.FossilCollectionLogLevel != "" {
		cfg.FossilCollectionLogLevel = w.FossilCollectionLogLevel
	}
	if w.MailboxCapacity != 0 {
		cfg.MailboxCapacity = w.MailboxCapacity
	}
	return cfg, nil
}

// LoadTOML feeds cfg from a TOML file, starting from DefaultKernelConfig.
func LoadTOML(path string) (KernelConfig, error) {
	base := DefaultKernelConfig()
	var w wireConfig
	if _, err := toml.DecodeFile(path, &w); err != nil {
		return base, fmt.Errorf("config: decode toml %s: %w", path, err)
	}
	return w.resolve(base)
}

// LoadYAML feeds cfg from a YAML file, starting from DefaultKernelConfig.
func LoadYAML(path string) (KernelConfig, error) {
	base := DefaultKernelConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read yaml %s: %w", path, err)
	}
	var w wireConfig
	if err := yaml.Unmarshal(data, &w); err != nil {
		return base, fmt.Errorf("config: decode yaml %s: %w", path, err)
	}
	return w.resolve(base)
}

// envPrefix namespaces the kernel's environment-variable overrides.
const envPrefix = "TIMEWARP_"

// ApplyEnvOverrides overlays cfg with any TIMEWARP_* environment
// variables present, using golobby/cast to coerce the drain-timeout value
// and strconv for the mailbox capacity — adapted from the teacher's
// AffixedEnvFeeder, which performs the same string->field-type cast for
// each exported struct field.
func ApplyEnvOverrides(cfg *KernelConfig, getenv func(string) string) error {
	if v := getenv(envPrefix + "INITIAL_DRAIN_TIMEOUT_MS"); v != "" {
		ms, err := cast.FromType(v, reflect.TypeOf(int64(0)))
		if err != nil {
			return fmt.Errorf("config: %sINITIAL_DRAIN_TIMEOUT_MS: %w", envPrefix, err)
		}
		cfg.InitialDrainTimeout = time.Duration(ms.(int64)) * time.Millisecond
	}
	if v := getenv(envPrefix + "FOSSIL_COLLECTION_LOG_LEVEL"); v != "" {
		cfg.FossilCollectionLogLevel = v
	}
	if v := getenv(envPrefix + "MAILBOX_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sMAILBOX_CAPACITY: %w", envPrefix, err)
		}
		cfg.MailboxCapacity = n
	}
	return nil
}
