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

// Package plugin selects the accelerator runtime plugin used by PJRT builds.
package plugin

import (
	"os"
	"strings"
)

// Default is the plugin used when none is configured.
const Default = "cpu"

// EnvVar overrides the configured plugin name.
const EnvVar = "DEVMEM_PLUGIN"

// Name returns the plugin to load given a configured name.
// The environment variable EnvVar takes precedence over the configuration.
func Name(configured string) string {
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		return env
	}
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}
	return Default
}
