// Package config centralizes skillguard's settings: flag values and
// SKILLGUARD_* environment variables, merged through viper.
package config

import (
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/skillguard/internal/registry"
	"github.com/yorozuya-cybersecurity/skillguard/internal/sidecar"
)

// Config is the resolved runtime configuration.
type Config struct {
	// RegistryURL is the skill marketplace base URL.
	RegistryURL string

	// ScannerURL, when set, is an external analysis endpoint; skillguard
	// then never spawns or kills a scanner process.
	ScannerURL string

	// ScannerPort is where a managed sidecar listens.
	ScannerPort int

	// Launcher overrides scanner-launcher discovery with an explicit path.
	Launcher string

	// LLM analyzer settings. Presence of the API key is what enables the
	// LLM analyzer; model and provider are optional refinements.
	LLMAPIKey   string
	LLMModel    string
	LLMProvider string

	// Output is the directory verify results are saved under.
	Output string

	// SkipScan fetches and reports without submitting for analysis.
	SkipScan bool
}

// SetDefaults registers defaults on the global viper instance. Called once
// from CLI setup, before flags are bound.
func SetDefaults() {
	viper.SetDefault("registry_url", registry.DefaultURL)
	viper.SetDefault("scanner_port", sidecar.DefaultPort)
	viper.SetDefault("llm_provider", "")
	viper.SetDefault("output", "./reports")
}

// Load snapshots the merged flag/env configuration.
func Load() Config {
	return Config{
		RegistryURL: viper.GetString("registry_url"),
		ScannerURL:  viper.GetString("scanner_url"),
		ScannerPort: viper.GetInt("scanner_port"),
		Launcher:    viper.GetString("launcher"),
		LLMAPIKey:   viper.GetString("llm_api_key"),
		LLMModel:    viper.GetString("llm_model"),
		LLMProvider: viper.GetString("llm_provider"),
		Output:      viper.GetString("output"),
		SkipScan:    viper.GetBool("skip_scan"),
	}
}
