package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"jsonlkit/pkg/configutil"
	"jsonlkit/pkg/console"
)

// EnvPrefix marks environment variables that override configuration.
// Nested keys are separated by a double underscore: JSONLKIT_SERVER__PORT.
const EnvPrefix = "JSONLKIT_"

const maxDecimalPlaces = 100

var (
	errEmptyConfigPath = errors.New("config path is empty")
	errEmptyDataDir    = errors.New("storage.data_dir must be set")
)

// Config represents the full configuration loaded from YAML and environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Format    FormatConfig    `yaml:"format"`
	Storage   StorageConfig   `yaml:"storage"`
	Retention RetentionConfig `yaml:"retention"`
	Console   ConsoleConfig   `yaml:"console"`
	Log       LogConfig       `yaml:"log"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
}

// ServerConfig describes HTTP server binding parameters.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Address returns the server listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FormatConfig holds default size formatting settings.
type FormatConfig struct {
	Metric        bool `yaml:"metric"`
	DecimalPlaces int  `yaml:"decimal_places"`
}

// StorageConfig locates the dataset directory.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// RetentionConfig controls removal of old datasets. A zero TTL keeps
// datasets forever.
type RetentionConfig struct {
	TTL             Duration `yaml:"ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// ConsoleConfig controls colored CLI output.
type ConsoleConfig struct {
	Color string `yaml:"color"`
}

// LogConfig controls the service logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RuntimeConfig tunes the Go runtime.
type RuntimeConfig struct {
	GOMAXPROCS int `yaml:"gomaxprocs"`
}

// Duration wraps time.Duration to support strings like "30d".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string, got kind %d", value.Kind)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler, used for env overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" || strings.EqualFold(raw, "null") {
		d.Duration = 0
		return nil
	}
	dur, err := configutil.ParseFlexibleDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every value populated.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Format: FormatConfig{
			Metric:        false,
			DecimalPlaces: 1,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Retention: RetentionConfig{
			CleanupInterval: Duration{time.Hour},
		},
		Console: ConsoleConfig{
			Color: string(console.ModeAuto),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and validates configuration from the provided YAML file.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errEmptyConfigPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader decodes YAML configuration on top of the defaults.
func LoadReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFromEnvOrFile layers the defaults, an optional YAML file and
// JSONLKIT_ prefixed environment variables, in that order.
func LoadFromEnvOrFile(path string) (*Config, error) {
	k := koanf.New(".")
	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	cfg := Default()
	conf := koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func envKey(name string) string {
	key := strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate returns an error if configuration values are missing or invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout.Duration < 0 || c.Server.WriteTimeout.Duration < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if c.Format.DecimalPlaces < 0 || c.Format.DecimalPlaces > maxDecimalPlaces {
		return fmt.Errorf("format.decimal_places must be within 0-%d, got %d", maxDecimalPlaces, c.Format.DecimalPlaces)
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errEmptyDataDir
	}
	if c.Retention.TTL.Duration < 0 || c.Retention.CleanupInterval.Duration < 0 {
		return errors.New("retention durations must not be negative")
	}
	if _, err := console.ParseMode(c.Console.Color); err != nil {
		return fmt.Errorf("console.color: %w", err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Runtime.GOMAXPROCS < 0 {
		return fmt.Errorf("runtime.gomaxprocs must not be negative, got %d", c.Runtime.GOMAXPROCS)
	}
	return nil
}

// ColorMode returns the parsed console color mode.
func (c *Config) ColorMode() console.Mode {
	mode, err := console.ParseMode(c.Console.Color)
	if err != nil {
		return console.ModeAuto
	}
	return mode
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	raw := strings.TrimSpace(l.Level)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
