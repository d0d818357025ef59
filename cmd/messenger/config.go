package main

import (
	"github.com/kelseyhightower/envconfig"
)

// CLIConfig controls presentation only; the core configuration lives in
// internal.Config.
type CLIConfig struct {
	// MESSENGER_COLOURS enables colorized output for message rendering
	Colours bool `envconfig:"MESSENGER_COLOURS" default:"true"`
	// MESSENGER_PROMPT overrides the input prompt
	Prompt string `envconfig:"MESSENGER_PROMPT" default:"> "`
}

func LoadCLIConfig() (CLIConfig, error) {
	var cfg CLIConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}
