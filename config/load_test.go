package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Pipeline.PollIntervalSeconds)
	assert.Equal(t, ".unfurl-", cfg.Pipeline.TempPrefix)
	assert.Equal(t, 10, cfg.Recursion.PromptRatio)
	assert.Equal(t, 600, cfg.Download.TimeoutSeconds)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("pipeline.poll_interval_seconds", 5)
	v.Set("recursion.prompt_ratio", 4)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.PollIntervalSeconds)
	assert.Equal(t, 4, cfg.Recursion.PromptRatio)
}
