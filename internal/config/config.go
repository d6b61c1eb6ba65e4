// Package config loads the migrator settings from an optional config file,
// MIGRATE_ environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MIGRATE"

// Config holds all settings for one migration run.
type Config struct {
	Source   SourceConfig
	Dest     DestConfig
	TenantID string `key:"tenant_id" validate:"required"`
	Batch    BatchConfig
	Report   ReportConfig
	Log      LogConfig
	Catalog  string `key:"catalog"`
	DryRun   bool   `key:"dry_run"`
}

type SourceConfig struct {
	URI      string `key:"source.uri" validate:"required"`
	Database string `key:"source.database" validate:"required"`
	PageSize int    `key:"source.page_size" validate:"min=1"`
}

type DestConfig struct {
	Driver          string        `key:"dest.driver" validate:"required,oneof=postgres sqlserver"`
	DSN             string        `key:"dest.dsn" validate:"required"`
	MaxOpenConns    int           `key:"dest.max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `key:"dest.max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `key:"dest.conn_max_lifetime"`
}

type BatchConfig struct {
	Size            int           `key:"batch.size" validate:"min=1,max=1000"`
	MaxAttempts     int           `key:"batch.max_attempts" validate:"min=1,max=20"`
	InitialInterval time.Duration `key:"batch.initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `key:"batch.max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `key:"batch.multiplier" validate:"gte=1"`
	Timeout         time.Duration `key:"batch.timeout" validate:"gt=0"`
	RecordFallback  bool          `key:"batch.record_fallback"`
}

type ReportConfig struct {
	File         string `key:"report.file"`
	RejectSample int    `key:"report.reject_sample" validate:"min=1"`
}

type LogConfig struct {
	Level  string `key:"log.level" validate:"oneof=debug info warn error"`
	Format string `key:"log.format" validate:"oneof=console json"`
	File   string `key:"log.file"`
}

// MissingValueError reports a required setting that was not provided.
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string {
	return "missing configuration value " + e.Key
}

// InvalidValueError reports a setting outside its allowed range.
type InvalidValueError struct {
	Key    string
	Value  interface{}
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid configuration value %s=%v: %s", e.Key, e.Value, e.Reason)
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// FlagKeys binds command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"tenant":          "tenant_id",
	"source-uri":      "source.uri",
	"source-db":       "source.database",
	"dest-driver":     "dest.driver",
	"dest-dsn":        "dest.dsn",
	"batch-size":      "batch.size",
	"max-attempts":    "batch.max_attempts",
	"batch-timeout":   "batch.timeout",
	"record-fallback": "batch.record_fallback",
	"report-file":     "report.file",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
	"catalog":         "catalog",
	"dry-run":         "dry_run",
}

// Options tell Load where to look besides the environment.
type Options struct {
	// ConfigFile is an explicit config file. When empty, crmmigrate.yaml is
	// looked up in the working directory and is optional.
	ConfigFile string
	// Flags are bound on top of the file and environment when set.
	Flags *pflag.FlagSet
	// SkipSource leaves the source settings unchecked, for commands that
	// only touch the destination.
	SkipSource bool
}

// Load reads, defaults and validates the configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("crmmigrate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Source: SourceConfig{
			URI:      v.GetString("source.uri"),
			Database: v.GetString("source.database"),
			PageSize: v.GetInt("source.page_size"),
		},
		Dest: DestConfig{
			Driver:          strings.ToLower(v.GetString("dest.driver")),
			DSN:             v.GetString("dest.dsn"),
			MaxOpenConns:    v.GetInt("dest.max_open_conns"),
			MaxIdleConns:    v.GetInt("dest.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("dest.conn_max_lifetime"),
		},
		TenantID: strings.TrimSpace(v.GetString("tenant_id")),
		Batch: BatchConfig{
			Size:            v.GetInt("batch.size"),
			MaxAttempts:     v.GetInt("batch.max_attempts"),
			InitialInterval: v.GetDuration("batch.initial_interval"),
			MaxInterval:     v.GetDuration("batch.max_interval"),
			Multiplier:      v.GetFloat64("batch.multiplier"),
			Timeout:         v.GetDuration("batch.timeout"),
			RecordFallback:  v.GetBool("batch.record_fallback"),
		},
		Report: ReportConfig{
			File:         v.GetString("report.file"),
			RejectSample: v.GetInt("report.reject_sample"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
			File:   v.GetString("log.file"),
		},
		Catalog: v.GetString("catalog"),
		DryRun:  v.GetBool("dry_run"),
	}

	if err := cfg.validate(opts.SkipSource); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tenant_id", "kanva-botanicals")
	v.SetDefault("source.page_size", 500)
	v.SetDefault("dest.driver", "postgres")
	v.SetDefault("dest.max_open_conns", 10)
	v.SetDefault("dest.max_idle_conns", 5)
	v.SetDefault("dest.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("batch.size", 100)
	v.SetDefault("batch.max_attempts", 5)
	v.SetDefault("batch.initial_interval", 500*time.Millisecond)
	v.SetDefault("batch.max_interval", 30*time.Second)
	v.SetDefault("batch.multiplier", 2.0)
	v.SetDefault("batch.timeout", 60*time.Second)
	v.SetDefault("batch.record_fallback", false)
	v.SetDefault("report.reject_sample", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if key := f.Tag.Get("key"); key != "" {
			return key
		}
		return f.Name
	})
	return val
}

// validate reports the first invalid setting. Missing required values come
// first so the diagnostic names what the operator has to provide.
func (c *Config) validate(skipSource bool) error {
	var err error
	if skipSource {
		err = validate.StructExcept(c, "Source")
	} else {
		err = validate.Struct(c)
	}
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &MissingValueError{Key: EnvName(fe.Field())}
		}
	}
	fe := verrs[0]
	return &InvalidValueError{Key: EnvName(fe.Field()), Value: fe.Value(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtefield":
		return "must not be less than " + EnvName("batch.initial_interval")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
