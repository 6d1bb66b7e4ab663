package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads zeppelin.json (or the legacy sources key layout) via viper,
// the same JSON/YAML-sniffing loader the capture-agent lineage used for
// its own GlobalConfig, with AutomaticEnv bound the same way.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if !v.IsSet("pipelines") && v.IsSet("sources") {
		v.Set("pipelines", v.Get("sources"))
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadSyncIoT reads synciot.json the same way.
func LoadSyncIoT(path string) (*SyncIoTConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg SyncIoTConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// ConfigFilename resolves CONFIG_FILENAME with the spec's default.
func ConfigFilename() string {
	if v := os.Getenv("CONFIG_FILENAME"); v != "" {
		return v
	}
	return "/config/zeppelin.json"
}

// SyncIoTFilename resolves SYNCIOT_CONFIG_FILENAME.
func SyncIoTFilename() string {
	if v := os.Getenv("SYNCIOT_CONFIG_FILENAME"); v != "" {
		return v
	}
	return "/config/synciot.json"
}
