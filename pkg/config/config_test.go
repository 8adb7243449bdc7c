package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bundlefang/pkg/config"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "negative cache", mutate: func(c *config.Config) { c.Transform.CacheSize = -1 }, wantErr: config.ErrInvalidCacheSize},
		{name: "zero cache", mutate: func(c *config.Config) { c.Transform.CacheSize = 0 }},
		{name: "target", mutate: func(c *config.Config) { c.Transform.Target = "es3" }, wantErr: config.ErrInvalidTarget},
		{name: "level", mutate: func(c *config.Config) { c.Logging.Level = "chatty" }, wantErr: config.ErrInvalidLogLevel},
		{name: "ratio", mutate: func(c *config.Config) { c.Telemetry.SampleRatio = 1.5 }, wantErr: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Observability(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.JSON = true
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Telemetry.OTLPHeaders = "x-team=web"
	cfg.Telemetry.Environment = "ci"

	obs := cfg.Observability("1.0.0")

	assert.Equal(t, "bundlefang", obs.ServiceName)
	assert.Equal(t, "1.0.0", obs.ServiceVersion)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-team": "web"}, obs.OTLPHeaders)
	assert.Equal(t, "ci", obs.Environment)
}
