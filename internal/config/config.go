// Package config loads the collector configuration from defaults, an
// optional YAML file, and COLLECTOR_-prefixed environment variables, in
// increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"cambridge-collector/internal/types"
)

// Load builds the runtime configuration. path may be ""; the loader then
// looks for an optional config.yaml in the working directory. Credentials
// are expected via COLLECTOR_PORTAL_USERNAME / COLLECTOR_PORTAL_PASSWORD,
// never via flags.
func Load(path string) (*types.Config, error) {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())

	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &types.Config{
		InputFile:       v.GetString("input_file"),
		OutputFile:      v.GetString("output_file"),
		ProcessingMode:  v.GetString("processing_mode"),
		StartRecord:     v.GetInt("start_record"),
		EndRecord:       v.GetInt("end_record"),
		RebuildIndex:    v.GetBool("rebuild_index"),
		IndexMaxAgeDays: v.GetInt("index_max_age_days"),
		IndexCacheFile:  v.GetString("index_cache_file"),
		PortalCacheFile: v.GetString("portal_cache_file"),
		SKURegistryFile: v.GetString("sku_registry_file"),

		PublicOrigin:        v.GetString("public_origin"),
		PortalOrigin:        v.GetString("portal_origin"),
		FuzzyMatchThreshold: v.GetFloat64("fuzzy_match_threshold"),
		LiveSearchFallback:  v.GetBool("live_search_fallback"),

		PortalUsername: v.GetString("portal_username"),
		PortalPassword: v.GetString("portal_password"),

		RequestDelay:       v.GetDuration("request_delay"),
		MaxRetries:         v.GetInt("max_retries"),
		Timeout:            v.GetDuration("timeout"),
		UseHeadlessBrowser: v.GetBool("use_headless_browser"),
		UserAgent:          v.GetString("user_agent"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *types.Config) {
	v.SetDefault("output_file", "output/products.json")
	v.SetDefault("processing_mode", d.ProcessingMode)
	v.SetDefault("start_record", d.StartRecord)
	v.SetDefault("end_record", d.EndRecord)
	v.SetDefault("index_max_age_days", d.IndexMaxAgeDays)
	v.SetDefault("index_cache_file", d.IndexCacheFile)
	v.SetDefault("portal_cache_file", d.PortalCacheFile)
	v.SetDefault("sku_registry_file", d.SKURegistryFile)
	v.SetDefault("public_origin", d.PublicOrigin)
	v.SetDefault("portal_origin", d.PortalOrigin)
	v.SetDefault("fuzzy_match_threshold", d.FuzzyMatchThreshold)
	v.SetDefault("live_search_fallback", d.LiveSearchFallback)
	v.SetDefault("request_delay", d.RequestDelay)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("use_headless_browser", d.UseHeadlessBrowser)
	v.SetDefault("user_agent", d.UserAgent)
}

// Validate rejects configurations the run cannot start with.
func Validate(cfg *types.Config) error {
	if cfg.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if _, err := os.Stat(cfg.InputFile); err != nil {
		return fmt.Errorf("input file %s is not readable: %w", cfg.InputFile, err)
	}
	if cfg.OutputFile == "" {
		return fmt.Errorf("output file is required")
	}
	if cfg.ProcessingMode != "skip" && cfg.ProcessingMode != "overwrite" {
		return fmt.Errorf("processing mode must be skip or overwrite, got %q", cfg.ProcessingMode)
	}
	if cfg.FuzzyMatchThreshold <= 0 || cfg.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("fuzzy match threshold must be in (0, 1], got %v", cfg.FuzzyMatchThreshold)
	}
	if cfg.StartRecord >= 0 && cfg.EndRecord >= 0 && cfg.EndRecord < cfg.StartRecord {
		return fmt.Errorf("end record %d precedes start record %d", cfg.EndRecord, cfg.StartRecord)
	}
	return nil
}

// HasPortalCredentials reports whether portal collection can run.
func HasPortalCredentials(cfg *types.Config) bool {
	return cfg.PortalUsername != "" && cfg.PortalPassword != ""
}
