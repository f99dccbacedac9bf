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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/devmem/backend/platform"
	"github.com/gx-org/devmem/config"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := &config.Config{
		Device:  config.DeviceConfig{SimCapacity: platform.DefaultSimCapacity},
		Grid:    config.GridConfig{ICells: 64, JCells: 64},
		Surface: config.SurfaceConfig{Precision: "float64", Z0m: 0.1, Z0h: 0.1, Ustar: 0.3, ConstantZ0: true, LookupSize: 10000},
		Logging: config.LoggingConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("unexpected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	const content = `
device:
  ordinal: 1
  plugin: cuda
grid:
  icells: 32
  jcells: 16
surface:
  precision: float32
  z0m: 0.05
  constant_z0: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(config.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.ICells != 32 || cfg.Grid.JCells != 16 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Surface.Precision != "float32" || cfg.Surface.Z0m != 0.05 || cfg.Surface.ConstantZ0 {
		t.Errorf("surface = %+v", cfg.Surface)
	}
	if cfg.Surface.Z0h != 0.1 {
		t.Errorf("unset z0h should keep its default, got %g", cfg.Surface.Z0h)
	}
	want := platform.Options{Device: 1, Plugin: "cuda", SimCapacity: platform.DefaultSimCapacity}
	if diff := cmp.Diff(want, cfg.PlatformOptions()); diff != "" {
		t.Errorf("unexpected platform options (-want +got):\n%s", diff)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEVMEM_GRID_ICELLS", "8")
	t.Setenv("DEVMEM_LOGGING_LEVEL", "debug")
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.ICells != 8 {
		t.Errorf("grid.icells = %d, want 8", cfg.Grid.ICells)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := config.Load(config.New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("loading a missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Grid:    config.GridConfig{ICells: 4, JCells: 4},
			Surface: config.SurfaceConfig{Precision: "float64", Z0m: 0.1, Z0h: 0.1, LookupSize: 10},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"negative ordinal", func(c *config.Config) { c.Device.Ordinal = -1 }},
		{"empty grid", func(c *config.Config) { c.Grid.JCells = 0 }},
		{"precision", func(c *config.Config) { c.Surface.Precision = "float16" }},
		{"roughness", func(c *config.Config) { c.Surface.Z0h = 0 }},
		{"lookup", func(c *config.Config) { c.Surface.LookupSize = 1 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("invalid config accepted: %+v", cfg)
			}
		})
	}
}
