package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.poll_interval_seconds", 1) // re-armed wait, not a kill timer
	v.SetDefault("pipeline.temp_prefix", ".unfurl-")

	v.SetDefault("recursion.prompt_ratio", 10) // prompt when nested archives exceed 1/10 of files

	v.SetDefault("download.timeout_seconds", 600)
}
