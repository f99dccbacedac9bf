// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the configuration of the device runtime and of the
// surface-layer model.
package config

import (
	"strings"

	"github.com/gx-org/devmem/backend/platform"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the configuration.
const EnvPrefix = "DEVMEM"

// Config represents the configuration of a run.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Grid    GridConfig    `mapstructure:"grid"`
	Surface SurfaceConfig `mapstructure:"surface"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DeviceConfig selects the accelerator.
type DeviceConfig struct {
	Ordinal     int    `mapstructure:"ordinal"`
	Plugin      string `mapstructure:"plugin"`
	SimCapacity uint64 `mapstructure:"sim_capacity"`
}

// GridConfig holds the horizontal dimensions of the surface fields,
// ghost cells included.
type GridConfig struct {
	ICells int `mapstructure:"icells"`
	JCells int `mapstructure:"jcells"`
}

// SurfaceConfig holds the surface-layer model settings.
type SurfaceConfig struct {
	// Precision is the floating point type of the fields: float32 or float64.
	Precision  string  `mapstructure:"precision"`
	Z0m        float64 `mapstructure:"z0m"`
	Z0h        float64 `mapstructure:"z0h"`
	Ustar      float64 `mapstructure:"ustar"`
	ConstantZ0 bool    `mapstructure:"constant_z0"`
	LookupSize int     `mapstructure:"lookup_size"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers the default configuration values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("device.ordinal", 0)
	v.SetDefault("device.plugin", "")
	v.SetDefault("device.sim_capacity", platform.DefaultSimCapacity)

	v.SetDefault("grid.icells", 64)
	v.SetDefault("grid.jcells", 64)

	v.SetDefault("surface.precision", "float64")
	v.SetDefault("surface.z0m", 0.1)
	v.SetDefault("surface.z0h", 0.1)
	v.SetDefault("surface.ustar", 0.3)
	v.SetDefault("surface.constant_z0", true)
	v.SetDefault("surface.lookup_size", 10000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path, if any, and decodes the result.
// Without a path, devmem.yaml is searched in the working directory; a missing
// file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "cannot read config file %s", path)
		}
	} else {
		v.SetConfigName("devmem")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "cannot read config file")
			}
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "cannot decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Device.Ordinal < 0 {
		return errors.Errorf("device.ordinal must be non-negative, got %d", c.Device.Ordinal)
	}
	if c.Grid.ICells <= 0 || c.Grid.JCells <= 0 {
		return errors.Errorf("grid must have positive dimensions, got %dx%d", c.Grid.ICells, c.Grid.JCells)
	}
	switch c.Surface.Precision {
	case "float32", "float64":
	default:
		return errors.Errorf("surface.precision must be float32 or float64, got %q", c.Surface.Precision)
	}
	if c.Surface.Z0m <= 0 || c.Surface.Z0h <= 0 {
		return errors.Errorf("roughness lengths must be positive, got z0m=%g z0h=%g", c.Surface.Z0m, c.Surface.Z0h)
	}
	if c.Surface.LookupSize < 2 {
		return errors.Errorf("surface.lookup_size must be at least 2, got %d", c.Surface.LookupSize)
	}
	return nil
}

// PlatformOptions returns the options of the device runtime.
func (c *Config) PlatformOptions() platform.Options {
	return platform.Options{
		Device:      c.Device.Ordinal,
		Plugin:      c.Device.Plugin,
		SimCapacity: c.Device.SimCapacity,
	}
}
