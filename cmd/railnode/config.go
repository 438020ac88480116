// Config loading for the railnode CLI.
package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/noko0413/Railnode/pkg/types"
)

const (
	configFileName = "railnode"
	configFileType = "yaml"

	defaultAddr = ":8080"
)

// appConfig is the full server configuration: listen address, storage
// selection, and the ordered entity declarations.
type appConfig struct {
	Addr     string               `mapstructure:"addr"`
	Storage  types.Config         `mapstructure:",squash"`
	Entities []types.EntitySchema `mapstructure:"entities"`
}

// loadConfig reads the config file with Viper. An explicit --config path
// must exist; otherwise railnode.yaml is searched in the working directory
// and a missing file is not an error.
func loadConfig(path string) (appConfig, error) {
	v := viper.New()
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("storage", string(types.AdapterMemory))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return appConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
