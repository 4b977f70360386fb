package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/letsplay/internal/factory"
	"github.com/mcoot/letsplay/internal/services/fetch"
	filestorage "github.com/mcoot/letsplay/internal/storage/file"
	redisstorage "github.com/mcoot/letsplay/internal/storage/redis"
)

// EnvPrefix prefixes every environment variable the CLI reads
const EnvPrefix = "LETSPLAY"

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	Storage     string
	StoragePath string
	RedisURL    string
	StaleTime   time.Duration
	Timeout     time.Duration
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   "http://localhost:8080",
		Storage:     factory.StorageTypeFile,
		StoragePath: filestorage.DefaultPath(),
		RedisURL:    redisstorage.DefaultConfig().URL,
		StaleTime:   fetch.DefaultStaleTime,
		Timeout:     fetch.DefaultTimeout,
		Output:      "text",
		Verbose:     false,
	}
}

// validate checks flag combinations before anything is built
func (c *Config) validate() error {
	if c.ServerURL == "" {
		return errors.New("--server must not be empty")
	}
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format %q: must be text or json", c.Output)
	}
	switch c.Storage {
	case factory.StorageTypeMemory, factory.StorageTypeFile, factory.StorageTypeRedis:
	default:
		return fmt.Errorf("invalid storage %q: must be memory, file or redis", c.Storage)
	}
	if c.StaleTime < 0 || c.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// logger builds the CLI logger; warnings only unless verbose
func (c *Config) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// factoryConfig translates CLI settings into application wiring
func (c *Config) factoryConfig(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		BaseURL:     c.ServerURL,
		StaleTime:   c.StaleTime,
		Timeout:     c.Timeout,
		Logger:      logger,
		StorageType: c.Storage,
		StoragePath: c.StoragePath,
	}
	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// bindEnv lets LETSPLAY_* environment variables fill in any persistent flag
// not given on the command line
func bindEnv(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
