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

//go:build pjrt

package plugin

import (
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
)

// Load returns a new PJRT client given a plugin name.
func Load(name string) (*pjrt.Client, error) {
	plugin, err := pjrt.GetPlugin(name)
	if err != nil {
		return nil, errors.Errorf("cannot load PJRT plugin %q: %v", name, err)
	}
	client, err := plugin.NewClient(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create a client for PJRT plugin %q", name)
	}
	return client, nil
}
