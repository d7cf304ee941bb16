// Package config resolves the service configuration once at start-up.
//
// Values are layered: built-in defaults, an optional config file, the
// environment (TUTOR_* plus STOCKFISH_PATH and MISTRAL_API_KEY) and finally
// command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/freeeve/chesstutor/internal/analysis"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Engine     EngineConfig     `mapstructure:"engine"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	ECO        ECOConfig        `mapstructure:"eco"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

type EngineConfig struct {
	Path           string        `mapstructure:"path"`
	Threads        int           `mapstructure:"threads"`
	HashMB         int           `mapstructure:"hash_mb"`
	Timeout        time.Duration `mapstructure:"timeout"`
	DefaultDepth   int           `mapstructure:"default_depth"`
	MaxDepth       int           `mapstructure:"max_depth"`
	DefaultMultiPV int           `mapstructure:"default_multipv"`
	MaxMultiPV     int           `mapstructure:"max_multipv"`
}

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	Language    string        `mapstructure:"language"`
}

// ClassifierConfig selects a threshold profile. Non-zero thresholds
// override the profile's values.
type ClassifierConfig struct {
	Profile    string           `mapstructure:"profile"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
}

type ThresholdsConfig struct {
	Good       int `mapstructure:"good"`
	Inaccuracy int `mapstructure:"inaccuracy"`
	Mistake    int `mapstructure:"mistake"`
	Blunder    int `mapstructure:"blunder"`
}

type ECOConfig struct {
	Dir string `mapstructure:"dir"` // empty disables opening lookup
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"server.addr":           ":8007",
	"server.max_concurrent": 4,
	"server.read_timeout":   "30s",
	"server.write_timeout":  "120s",

	"engine.path":            "",
	"engine.threads":         2,
	"engine.hash_mb":         256,
	"engine.timeout":         "30s",
	"engine.default_depth":   16,
	"engine.max_depth":       30,
	"engine.default_multipv": 3,
	"engine.max_multipv":     10,

	"llm.api_key":     "",
	"llm.endpoint":    "",
	"llm.model":       "mistral-large-latest",
	"llm.timeout":     "15s",
	"llm.temperature": 0.2,
	"llm.language":    "English",

	"classifier.profile":               "tiered",
	"classifier.thresholds.good":       0,
	"classifier.thresholds.inaccuracy": 0,
	"classifier.thresholds.mistake":    0,
	"classifier.thresholds.blunder":    0,

	"eco.dir": "",

	"log.level":  "info",
	"log.format": "console",
}

// aliases are environment names accepted besides TUTOR_<KEY>.
var aliases = map[string]string{
	"engine.path": "STOCKFISH_PATH",
	"llm.api_key": "MISTRAL_API_KEY",
}

// flags maps command-line flag names to config keys.
var flags = []struct {
	name, key, usage string
}{
	{"addr", "server.addr", "listen address"},
	{"stockfish", "engine.path", "path to Stockfish executable"},
	{"depth", "engine.default_depth", "default search depth"},
	{"multipv", "engine.default_multipv", "default number of candidate lines"},
	{"eco-dir", "eco.dir", "directory containing ECO .tsv or .tsv.zst files"},
	{"classifier", "classifier.profile", "move classifier profile (tiered, binary)"},
	{"log-level", "log.level", "log level (debug, info, warn, error)"},
	{"log-format", "log.format", "log format (console, json)"},
}

// Load registers the common flags on fs, parses args and resolves the
// configuration. Callers may add their own flags to fs beforehand.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfgPath := fs.String("config", "", "config file (yaml, json or toml)")
	for _, f := range flags {
		fs.String(f.name, "", f.usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if *cfgPath != "" {
		v.SetConfigFile(*cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", *cfgPath, err)
		}
	}

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range aliases {
		if err := v.BindEnv(key, "TUTOR_"+envName(key), env); err != nil {
			return nil, err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, f := range flags {
		if set[f.name] {
			v.Set(f.key, fs.Lookup(f.name).Value.String())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.MaxConcurrent < 1 {
		errs = append(errs, errors.New("server.max_concurrent must be at least 1"))
	}
	if c.Engine.DefaultDepth < 1 || c.Engine.MaxDepth < c.Engine.DefaultDepth {
		errs = append(errs, fmt.Errorf("engine depth: default %d and max %d must satisfy 1 <= default <= max",
			c.Engine.DefaultDepth, c.Engine.MaxDepth))
	}
	if c.Engine.DefaultMultiPV < 1 || c.Engine.MaxMultiPV < c.Engine.DefaultMultiPV {
		errs = append(errs, fmt.Errorf("engine multipv: default %d and max %d must satisfy 1 <= default <= max",
			c.Engine.DefaultMultiPV, c.Engine.MaxMultiPV))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, errors.New("engine.timeout must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if _, err := c.Classifier.Resolve(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want console or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Resolve returns the thresholds of the profile with overrides applied.
func (c ClassifierConfig) Resolve() (analysis.Thresholds, error) {
	t, err := analysis.ProfileThresholds(c.Profile)
	if err != nil {
		return t, err
	}
	o := c.Thresholds
	if o.Good > 0 {
		t.Good = o.Good
	}
	if o.Inaccuracy > 0 {
		t.Inaccuracy = o.Inaccuracy
	}
	if o.Mistake > 0 {
		t.Mistake = o.Mistake
	}
	if o.Blunder > 0 {
		t.Blunder = o.Blunder
	}
	return t, nil
}
