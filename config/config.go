package config

import "time"

// Config represents the unfurl tunables.
//
// These are the empirically chosen constants of the extraction engine,
// kept configurable rather than hard-coded.
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Recursion RecursionConfig `mapstructure:"recursion"`
	Download  DownloadConfig  `mapstructure:"download"`
}

// PipelineConfig configures subprocess pipeline execution
type PipelineConfig struct {
	// PollIntervalSeconds is the per-wait timeout on each pipeline stage.
	// The wait is re-armed in a loop, so long-running legitimate extraction
	// is never killed; each expiry only triggers a stalled-process check.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`

	// TempPrefix names the hidden temporary directories and files that own
	// extraction output until a placement handler takes over.
	TempPrefix string `mapstructure:"temp_prefix"`
}

// PollInterval returns the per-wait timeout as a duration.
func (p PipelineConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// RecursionConfig configures nested-archive discovery
type RecursionConfig struct {
	// PromptRatio is the denominator of the nagging heuristic: the user is
	// only asked about nested archives when archiveCount * PromptRatio
	// exceeds the total extracted file count (default 10, i.e. 10%).
	PromptRatio int `mapstructure:"prompt_ratio"`
}

// DownloadConfig configures the URL fetch helper
type DownloadConfig struct {
	// TimeoutSeconds bounds a single remote fetch (default: 600)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}
