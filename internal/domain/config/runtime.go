package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into adapters and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	From string // acting account: address or [accounts] name
	At   uint64 // pinned logical time in unix seconds, 0 for the wall clock

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Config source tracking
	ConfigSource string // "govlock.toml" or "defaults"

	// Resolved configurations
	Project *ProjectConfig
}
