package config

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CALLSCOPE"

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains all the configuration for the application
type Config struct {
	// Core settings
	PyroscopeURL string            `mapstructure:"pyroscope_url" yaml:"pyroscope_url"`
	AuthToken    string            `mapstructure:"auth_token" yaml:"auth_token"`
	AppName      string            `mapstructure:"app_name" yaml:"app_name"`
	Tags         map[string]string `mapstructure:"tags" yaml:"tags"`
	Debug        bool              `mapstructure:"debug" yaml:"debug"`
	LogLevel     string            `mapstructure:"log_level" yaml:"log_level"`

	// Relay settings
	RelayURL string `mapstructure:"relay_url" yaml:"relay_url"`
	Channel  string `mapstructure:"channel" yaml:"channel"`

	// Profiling settings
	Targets         []string      `mapstructure:"targets" yaml:"targets"`
	MaxDepth        int           `mapstructure:"max_depth" yaml:"max_depth"`
	Interval        float64       `mapstructure:"interval" yaml:"interval"`
	Duration        time.Duration `mapstructure:"duration" yaml:"duration"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit" yaml:"concurrent_limit"`
	ExcludePattern  string        `mapstructure:"exclude_pattern" yaml:"exclude_pattern"`
}

// NewDefault returns a new default config
func NewDefault() *Config {
	return &Config{
		AppName:         "callscope",
		LogLevel:        "info",
		Targets:         []string{"workload"},
		MaxDepth:        10,
		Interval:        1,
		Duration:        10 * time.Second,
		ConcurrentLimit: 1,
	}
}

// keys lists every config key, matching the mapstructure tags of Config.
var keys = []string{
	"pyroscope_url", "auth_token", "app_name", "tags", "debug", "log_level",
	"relay_url", "channel",
	"targets", "max_depth", "interval", "duration", "concurrent_limit", "exclude_pattern",
}

// flagKeys maps CLI flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"auth":       "auth_token",
	"exclude":    "exclude_pattern",
	"concurrent": "concurrent_limit",
}

// Load builds the effective configuration. Values are taken, highest first,
// from flags that were set explicitly, CALLSCOPE_* environment variables, the
// YAML file at path (optional) and NewDefault.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := NewDefault()
	v.SetDefault("app_name", def.AppName)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("targets", def.Targets)
	v.SetDefault("max_depth", def.MaxDepth)
	v.SetDefault("interval", def.Interval)
	v.SetDefault("duration", def.Duration)
	v.SetDefault("concurrent_limit", def.ConcurrentLimit)

	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			bindErr = multierr.Append(bindErr, v.BindPFlag(key, f))
		})
		if bindErr != nil {
			return nil, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.DecodeHookFuncType(stringToTags),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// stringToTags decodes "k=v,k2=v2" (as read from the environment) into a map.
func stringToTags(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]string{}) {
		return data, nil
	}
	tags := make(map[string]string)
	for _, pair := range strings.Split(data.(string), ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		key, value, err := ParseTag(pair)
		if err != nil {
			return nil, err
		}
		tags[key] = value
	}
	return tags, nil
}

// ParseTag splits a "key=value" string into separate key and value.
func ParseTag(tag string) (string, string, error) {
	key, value, ok := strings.Cut(tag, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: tag %q is not key=value", ErrInvalidConfig, tag)
	}
	return key, strings.TrimSpace(value), nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var err error
	invalid := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if len(c.Targets) == 0 {
		invalid("no targets")
	}
	if c.MaxDepth < 0 {
		invalid("max depth %d is negative", c.MaxDepth)
	}
	if c.Interval <= 0 {
		invalid("interval %v must be positive", c.Interval)
	}
	if c.Duration < 0 {
		invalid("duration %s is negative", c.Duration)
	}
	if c.ConcurrentLimit < 1 {
		invalid("concurrent limit %d must be at least 1", c.ConcurrentLimit)
	}
	if c.PyroscopeURL != "" && c.AppName == "" {
		invalid("app name is required with a pyroscope url")
	}
	if c.ExcludePattern != "" {
		if _, reErr := regexp.Compile(c.ExcludePattern); reErr != nil {
			invalid("exclude pattern: %v", reErr)
		}
	}
	if _, lvlErr := zapcore.ParseLevel(c.LogLevel); lvlErr != nil {
		invalid("log level: %v", lvlErr)
	}

	return err
}

// IntervalDuration returns Interval (seconds) as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// Exclude compiles ExcludePattern, returning nil when it is empty.
func (c *Config) Exclude() (*regexp.Regexp, error) {
	if c.ExcludePattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.ExcludePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: exclude pattern: %w", ErrInvalidConfig, err)
	}
	return re, nil
}

// WriteYAML dumps the configuration with the auth token masked.
func (c *Config) WriteYAML(w io.Writer) error {
	out := *c
	if out.AuthToken != "" {
		out.AuthToken = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// RegisterFlags defines the command line flags understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	def := NewDefault()

	// Core settings
	fs.String("config", "", "Path to a YAML config file")
	fs.String("pyroscope-url", "", "URL of the Pyroscope server")
	fs.String("auth", "", "Authentication token for Pyroscope")
	fs.String("app-name", def.AppName, "Application name for profiling data")
	fs.StringToString("tags", nil, "Tags in format key=value")
	fs.Bool("debug", false, "Enable debug logging")
	fs.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")

	// Relay settings
	fs.String("relay-url", "", "URL of the relay receiving stat and callgraph messages")
	fs.String("channel", "", "Relay channel id (random when empty)")

	// Profiling settings
	fs.StringSlice("targets", def.Targets, "Paths of the functions or tables to instrument")
	fs.Int("max-depth", def.MaxDepth, "Maximum traversal depth")
	fs.Float64("interval", def.Interval, "Time between data sends (seconds)")
	fs.Duration("duration", def.Duration, "How long to run the workload")
	fs.Int("concurrent", def.ConcurrentLimit, "Maximum concurrent requests")
	fs.String("exclude", "", "Regex pattern to exclude functions")
}
