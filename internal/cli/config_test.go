package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"json output", func(c *Config) { c.Output = "json" }, false},
		{"bad output", func(c *Config) { c.Output = "yaml" }, true},
		{"bad storage", func(c *Config) { c.Storage = "floppy" }, true},
		{"empty server", func(c *Config) { c.ServerURL = "" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactoryConfigRedis(t *testing.T) {
	c := DefaultConfig()
	c.Storage = "redis"
	c.RedisURL = "redis://cache:6379/2"

	fc := c.factoryConfig(nil)

	require.NotNil(t, fc.RedisConfig)
	assert.Equal(t, "redis://cache:6379/2", fc.RedisConfig.URL)
}

func TestEnvironmentFillsFlags(t *testing.T) {
	t.Setenv("LETSPLAY_SERVER", "http://backend.test")
	t.Setenv("LETSPLAY_STALE_TIME", "5m")
	t.Setenv("LETSPLAY_VERBOSE", "true")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "http://backend.test", cfg.ServerURL)
	assert.Equal(t, 5*time.Minute, cfg.StaleTime)
	assert.True(t, cfg.Verbose)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("LETSPLAY_OUTPUT", "json")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--output", "text"}))

	assert.Equal(t, "text", cfg.Output)
}
