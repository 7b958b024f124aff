package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

// EnvPrefix is the prefix of environment overrides, e.g. REFPTR_LOGS_LEVEL=debug.
const EnvPrefix = "REFPTR"

var (
	ErrUnknownEnv      = errors.New("unknown env")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidStore    = errors.New("invalid store config")
	ErrInvalidPort     = errors.New("invalid api port")
)

type Config struct {
	Env       string    `yaml:"env"`
	Logs      Logs      `yaml:"logs"`
	Pool      Pool      `yaml:"pool"`
	Store     Store     `yaml:"store"`
	SelfCheck SelfCheck `yaml:"selfcheck"`
	Api       Api       `yaml:"api"`
	K8S       K8S       `yaml:"k8s"`
}

type Logs struct {
	Level   string `yaml:"level"`   // zerolog level name: trace, debug, info, warn, error
	Console bool   `yaml:"console"` // human readable output instead of json
}

type Pool struct {
	// Preallocate is the number of count blocks put into the pool at start-up.
	Preallocate int `yaml:"preallocate"`
}

type Store struct {
	NumCounters int64 `yaml:"num_counters"` // ~10x of expected max items
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"` // 64 is the recommended value
	Metrics     bool  `yaml:"metrics"`
	// SweepInterval is how often expired weak index entries are dropped.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type SelfCheck struct {
	OnStart bool    `yaml:"on_start"`
	RPS     float64 `yaml:"rps"` // requests per second allowed on /selfcheck
	Burst   int     `yaml:"burst"`
}

type Api struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
}

type K8S struct {
	Probe Probe `yaml:"probe"`
}

type Probe struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used for missing keys.
func Default() *Config {
	return &Config{
		Env:  Dev,
		Logs: Logs{Level: "info"},
		Pool: Pool{Preallocate: 1024},
		Store: Store{
			NumCounters:   100_000,
			MaxCost:       10_000,
			BufferItems:   64,
			SweepInterval: time.Minute,
		},
		SelfCheck: SelfCheck{OnStart: true, RPS: 1, Burst: 1},
		Api:       Api{Name: "refptr.inspector", Port: "8020"},
		K8S:       K8S{Probe: Probe{Timeout: 5 * time.Second}},
	}
}

// LoadConfig reads the yaml file at path on top of Default, applies REFPTR_*
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path, err = filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute config filepath: %w", err)
	}

	if _, err = os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes yaml data on top of Default, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	applyEnv(cfg, newEnv())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overrides cfg with every key set in the environment.
func applyEnv(cfg *Config, v *viper.Viper) {
	if v.IsSet("env") {
		cfg.Env = v.GetString("env")
	}
	if v.IsSet("logs.level") {
		cfg.Logs.Level = v.GetString("logs.level")
	}
	if v.IsSet("logs.console") {
		cfg.Logs.Console = v.GetBool("logs.console")
	}
	if v.IsSet("pool.preallocate") {
		cfg.Pool.Preallocate = v.GetInt("pool.preallocate")
	}
	if v.IsSet("store.num_counters") {
		cfg.Store.NumCounters = v.GetInt64("store.num_counters")
	}
	if v.IsSet("store.max_cost") {
		cfg.Store.MaxCost = v.GetInt64("store.max_cost")
	}
	if v.IsSet("store.buffer_items") {
		cfg.Store.BufferItems = v.GetInt64("store.buffer_items")
	}
	if v.IsSet("store.metrics") {
		cfg.Store.Metrics = v.GetBool("store.metrics")
	}
	if v.IsSet("store.sweep_interval") {
		cfg.Store.SweepInterval = v.GetDuration("store.sweep_interval")
	}
	if v.IsSet("selfcheck.on_start") {
		cfg.SelfCheck.OnStart = v.GetBool("selfcheck.on_start")
	}
	if v.IsSet("selfcheck.rps") {
		cfg.SelfCheck.RPS = v.GetFloat64("selfcheck.rps")
	}
	if v.IsSet("selfcheck.burst") {
		cfg.SelfCheck.Burst = v.GetInt("selfcheck.burst")
	}
	if v.IsSet("api.name") {
		cfg.Api.Name = v.GetString("api.name")
	}
	if v.IsSet("api.port") {
		cfg.Api.Port = v.GetString("api.port")
	}
	if v.IsSet("k8s.probe.timeout") {
		cfg.K8S.Probe.Timeout = v.GetDuration("k8s.probe.timeout")
	}
}

func (c *Config) Validate() error {
	switch c.Env {
	case Prod, Dev, Test:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownEnv, c.Env)
	}

	switch strings.ToLower(c.Logs.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("%w: '%s'", ErrInvalidLogLevel, c.Logs.Level)
	}

	if c.Store.NumCounters <= 0 || c.Store.MaxCost <= 0 || c.Store.BufferItems <= 0 {
		return fmt.Errorf("%w: num_counters, max_cost and buffer_items must be positive", ErrInvalidStore)
	}
	if c.Store.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidStore)
	}

	if c.Api.Port == "" {
		return ErrInvalidPort
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == Prod
}
